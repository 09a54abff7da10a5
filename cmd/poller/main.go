package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cassiomorais/giftpay/internal/bootstrap"
	"github.com/cassiomorais/giftpay/internal/domain/payment"
	"github.com/cassiomorais/giftpay/internal/infrastructure/observability"
	"github.com/cassiomorais/giftpay/internal/poller"
)

// Exit codes
const (
	exitSettled = 0
	exitFailed  = 1
	exitTimeout = 2
	exitUsage   = 64
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		paymentID string
		method    string
		interval  time.Duration
		timeout   time.Duration
	)

	flag.StringVar(&paymentID, "id", "", "Payment ID to follow (required)")
	flag.StringVar(&method, "method", "", "Payment method hint: pix, credit_card or debit_card")
	flag.DurationVar(&interval, "interval", 0, "Polling interval (default poller.interval)")
	flag.DurationVar(&timeout, "timeout", 0, "Give up after this long (default poller.max_duration)")
	flag.Parse()

	m, err := payment.ParseMethod(method)
	if paymentID == "" || err != nil {
		flag.Usage()
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, bootstrap.Options{
		ServiceName:      "giftpay-poller",
		MetricsNamespace: "giftpay_poller",
		LogOutput:        observability.ConsoleWriter(os.Stderr),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		return exitFailed
	}
	defer app.Close()
	defer app.Shutdown(context.Background())

	if interval <= 0 {
		interval = app.Config.Poller.Interval
	}
	if timeout <= 0 {
		timeout = app.Config.Poller.MaxDuration
	}

	p := poller.New(app.Payments, paymentID, m,
		poller.WithInterval(interval),
		poller.WithMaxDuration(timeout),
		poller.WithLogger(app.Logger),
		poller.WithMetrics(app.Metrics),
		poller.OnStatusChange(func(s payment.StatusResponse) {
			fmt.Printf("%s\t%s\t%s\n", time.Now().Format(time.RFC3339), s.Provider, s.Status)
		}),
	)

	status, err := p.Run(ctx)
	switch {
	case err == nil:
		if status.Status == payment.StatusCompleted {
			return exitSettled
		}
		return exitFailed
	case errors.Is(err, poller.ErrPollingTimeout):
		fmt.Fprintln(os.Stderr, err)
		return exitTimeout
	default:
		fmt.Fprintln(os.Stderr, err)
		return exitFailed
	}
}
