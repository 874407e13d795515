package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/fd1az/promptchain/internal/apperror"
)

func TestLimiter_BurstThenThrottle(t *testing.T) {
	l := New(1, 2)

	if !l.Allow() || !l.Allow() {
		t.Fatal("expected burst of 2 to be allowed")
	}
	if l.Allow() {
		t.Error("expected third request to be throttled")
	}
}

func TestLimiter_WaitHonorsContext(t *testing.T) {
	l := New(0.001, 1)
	l.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	if !apperror.HasCode(err, apperror.CodeRateLimitExceeded) {
		t.Errorf("expected rate limit error, got %v", err)
	}
}

func TestLimiter_Disabled(t *testing.T) {
	tests := []struct {
		name string
		l    *Limiter
	}{
		{"zero_rate", New(0, 0)},
		{"nil_limiter", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 100; i++ {
				if err := tt.l.Wait(context.Background()); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}
		})
	}
}
