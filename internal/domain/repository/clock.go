package repository

import "time"

// Clock abstracts time for staleness decisions so they can be tested
// without real timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock implementation.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

var _ Clock = SystemClock{}
