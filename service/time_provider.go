package service

import (
	"time"

	"myregistry/helpers"
	"myregistry/interfaces"
)

// timeProvider implements interfaces.TimeProvider over an injected now func.
type timeProvider struct {
	now func() time.Time
}

// NewTimeProvider creates a TimeProvider that returns time via the given now func. Panics on nil now.
// In cmd the func is time.Now; tests pass helpers.TestNow.
func NewTimeProvider(now func() time.Time) interfaces.TimeProvider {
	return &timeProvider{now: helpers.NilPanic(now, "service.time_provider.go: now is required")}
}

func (t *timeProvider) Now() time.Time {
	return t.now()
}

// NowMs returns the provider's current time in epoch millis.
func NowMs(tp interfaces.TimeProvider) int64 {
	return tp.Now().UnixMilli()
}
