package clock

import (
	"context"
	"time"
)

type SystemClock struct{}

func (SystemClock) Now(ctx context.Context) time.Time {
	if t, ok := FromContext(ctx); ok {
		return t
	}
	return time.Now().UTC()
}

// Fixed always reports the same instant.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now(context.Context) time.Time {
	return f.T.UTC()
}
