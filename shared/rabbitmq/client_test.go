package rabbitmq

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPublishBackoff(t *testing.T) {
	tests := []struct {
		name    string
		base    time.Duration
		mult    float64
		attempt int
		want    time.Duration
	}{
		{
			name:    "first retry uses the base delay",
			base:    100 * time.Millisecond,
			mult:    2.0,
			attempt: 0,
			want:    100 * time.Millisecond,
		},
		{
			name:    "delay doubles per attempt",
			base:    100 * time.Millisecond,
			mult:    2.0,
			attempt: 2,
			want:    400 * time.Millisecond,
		},
		{
			name:    "non-integer multiplier",
			base:    time.Second,
			mult:    1.5,
			attempt: 2,
			want:    2250 * time.Millisecond,
		},
		{
			name:    "multiplier of one keeps the delay flat",
			base:    time.Second,
			mult:    1.0,
			attempt: 5,
			want:    time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, publishBackoff(tt.base, tt.mult, tt.attempt))
		})
	}
}
