package helpers

import "time"

// TestNow is the fixed clock used by tests: 2026-02-11 12:00:00 UTC.
func TestNow() time.Time {
	return time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC)
}

// TestNowMs is TestNow in epoch millis, the unit stored in session nodes and records.
func TestNowMs() int64 {
	return TestNow().UnixMilli()
}
