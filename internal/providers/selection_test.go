package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectFirstHealthy(t *testing.T) {
	tests := []struct {
		name       string
		healthy    map[string]bool
		want       string
		wantOK     bool
		wantProbed []string
	}{
		{
			name:       "first healthy wins",
			healthy:    map[string]bool{"a": true, "b": true, "c": true},
			want:       "a",
			wantOK:     true,
			wantProbed: []string{"a"},
		},
		{
			name:       "skips unhealthy in order",
			healthy:    map[string]bool{"a": false, "b": true, "c": true},
			want:       "b",
			wantOK:     true,
			wantProbed: []string{"a", "b"},
		},
		{
			name:       "only last healthy",
			healthy:    map[string]bool{"a": false, "b": false, "c": true},
			want:       "c",
			wantOK:     true,
			wantProbed: []string{"a", "b", "c"},
		},
		{
			name:       "none healthy",
			healthy:    map[string]bool{},
			wantOK:     false,
			wantProbed: []string{"a", "b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var probed []string
			got, ok := SelectFirstHealthy(context.Background(), []string{"a", "b", "c"}, func(_ context.Context, s string) bool {
				probed = append(probed, s)
				return tt.healthy[s]
			})

			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantProbed, probed)
		})
	}
}

func TestSelectFirstHealthy_EmptyCandidates(t *testing.T) {
	got, ok := SelectFirstHealthy(context.Background(), []int(nil), func(context.Context, int) bool { return true })

	assert.False(t, ok)
	assert.Zero(t, got)
}

func TestSelectFirstHealthy_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, ok := SelectFirstHealthy(ctx, []string{"a", "b"}, func(context.Context, string) bool {
		calls++
		return true
	})

	assert.False(t, ok)
	assert.Zero(t, calls)
}
