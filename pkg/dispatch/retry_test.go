package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy_Do(t *testing.T) {
	policy := RetryPolicy{InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
	transient := errors.New("transient")

	tests := []struct {
		name         string
		retries      int
		failures     int
		permanentErr bool
		wantAttempts int
		wantErr      bool
	}{
		{name: "first try", retries: 3, failures: 0, wantAttempts: 1},
		{name: "recovers", retries: 3, failures: 2, wantAttempts: 3},
		{name: "exhausted", retries: 2, failures: 10, wantAttempts: 3, wantErr: true},
		{name: "no retries", retries: 0, failures: 1, wantAttempts: 1, wantErr: true},
		{name: "permanent", retries: 5, failures: 1, permanentErr: true, wantAttempts: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var retried int
			attempts, err := policy.Do(context.Background(), tt.retries, func(attempt int) error {
				if attempt > tt.failures {
					return nil
				}
				if tt.permanentErr {
					return permanent(transient)
				}
				return transient
			}, func(int, time.Duration, error) { retried++ })

			assert.Equal(t, tt.wantAttempts, attempts)
			assert.Equal(t, tt.wantAttempts-1, retried)
			if tt.wantErr {
				assert.Same(t, transient, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRetryPolicy_StopsAtDeadline(t *testing.T) {
	policy := RetryPolicy{InitialInterval: time.Second, MaxInterval: time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	started := time.Now()
	attempts, err := policy.Do(ctx, 5, func(int) error { return errors.New("503") }, nil)

	assert.Equal(t, 1, attempts)
	assert.Error(t, err)
	assert.Less(t, time.Since(started), 500*time.Millisecond)
}

func TestRetryPolicy_StopsWhenCancelled(t *testing.T) {
	policy := RetryPolicy{InitialInterval: 50 * time.Millisecond, MaxInterval: 50 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())

	attempts, err := policy.Do(ctx, 5, func(attempt int) error {
		if attempt == 1 {
			cancel()
		}
		return errors.New("503")
	}, nil)

	assert.Equal(t, 1, attempts)
	assert.EqualError(t, err, "503")
}
