package providers

import "context"

// SelectFirstHealthy probes candidates in order and returns the first one the probe accepts.
// Probing stops at the first healthy candidate and when ctx is done.
func SelectFirstHealthy[P any](ctx context.Context, candidates []P, probe func(context.Context, P) bool) (P, bool) {
	var zero P
	for _, c := range candidates {
		if ctx.Err() != nil {
			return zero, false
		}
		if probe(ctx, c) {
			return c, true
		}
	}
	return zero, false
}
