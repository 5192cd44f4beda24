package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"myregistry/domain"
	"myregistry/helpers"
	"myregistry/interfaces"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

const maxJitterAttempts = 10

// JitteredDelay draws a delay around expected from a gaussian with variance expected/2 (in seconds).
// Draws not above expected/3 are rejected; after maxJitterAttempts rejections expected is returned.
func JitteredDelay(expected time.Duration, gauss func() float64) time.Duration {
	exp := expected.Seconds()
	if exp <= 0 {
		return expected
	}
	stddev := math.Sqrt(exp / 2)
	minimal := exp / 3
	for range maxJitterAttempts {
		if d := stddev*gauss() + exp; d > minimal {
			return time.Duration(d * float64(time.Second))
		}
	}
	return expected
}

// RecordingSchedule periodically collects a value from every collector and appends one record per
// collector to the importer. Runs are spaced by JitteredDelay so instances do not flush in lockstep.
type RecordingSchedule struct {
	target     domain.HostAndPort
	collectors []interfaces.Collector
	importer   interfaces.RecordImporter
	tp         interfaces.TimeProvider
	initDelay  time.Duration
	period     time.Duration
	gauss      func() float64
	logger     log.Logger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// RecordingScheduleOption configures a RecordingSchedule.
type RecordingScheduleOption func(*RecordingSchedule)

// WithGauss replaces the normal distribution source, used by tests for deterministic delays.
func WithGauss(gauss func() float64) RecordingScheduleOption {
	return func(s *RecordingSchedule) {
		s.gauss = helpers.NilPanic(gauss, "service.recording_schedule.go: gauss is required")
	}
}

// NewRecordingSchedule creates a schedule. Nothing runs until Start.
func NewRecordingSchedule(
	target domain.HostAndPort,
	collectors []interfaces.Collector,
	importer interfaces.RecordImporter,
	tp interfaces.TimeProvider,
	initDelay, period time.Duration,
	logger log.Logger,
	opts ...RecordingScheduleOption,
) *RecordingSchedule {
	if period <= 0 {
		panic("service.recording_schedule.go: period must be positive")
	}
	s := &RecordingSchedule{
		target:     target,
		collectors: collectors,
		importer:   helpers.NilPanic(importer, "service.recording_schedule.go: importer is required"),
		tp:         helpers.NilPanic(tp, "service.recording_schedule.go: time provider is required"),
		initDelay:  initDelay,
		period:     period,
		gauss:      rand.NormFloat64,
		logger:     log.With(helpers.NilPanic(logger, "service.recording_schedule.go: logger is required"), "component", "RecordingSchedule"),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start ensures the storage schema and launches the recording loop. The loop ends when ctx is
// cancelled or Stop is called.
func (s *RecordingSchedule) Start(ctx context.Context) error {
	schemes := make([]string, 0, len(s.collectors))
	for _, c := range s.collectors {
		schemes = append(schemes, c.Name())
	}
	if err := s.importer.EnsureSchema(ctx, s.target, schemes); err != nil {
		return fmt.Errorf("recording schedule failed to ensure schema for %s, err: %w", s.target.InstanceID(), err)
	}

	ctx, s.cancel = context.WithCancel(ctx)
	go s.loop(ctx)
	return nil
}

// Stop cancels the loop and waits for the current run to finish. Safe to call more than once,
// and a no-op when Start never succeeded.
func (s *RecordingSchedule) Stop() {
	if s.cancel == nil {
		return
	}
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

func (s *RecordingSchedule) loop(ctx context.Context) {
	defer close(s.done)

	delay := JitteredDelay(s.initDelay, s.gauss)
	for {
		level.Debug(s.logger).Log("msg", "next recording scheduled", "delay", delay)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := s.RunOnce(ctx); err != nil {
			level.Warn(s.logger).Log("msg", "unable to flush records", "err", err)
		}
		delay = JitteredDelay(s.period, s.gauss)
	}
}

// RunOnce collects every collector and appends the records in one AddRecords call.
// A failing or panicking collector is logged and skipped.
func (s *RecordingSchedule) RunOnce(ctx context.Context) error {
	now := NowMs(s.tp)
	records := make([]domain.StoreRecord, 0, len(s.collectors))
	for _, c := range s.collectors {
		rec, err := s.collect(ctx, c, now)
		if err != nil {
			level.Warn(s.logger).Log("msg", "collector failed", "scheme", c.Name(), "err", err)
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil
	}
	return s.importer.AddRecords(ctx, s.target, records)
}

func (s *RecordingSchedule) collect(ctx context.Context, c interfaces.Collector, now int64) (rec domain.StoreRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("collector panicked: %v", r)
		}
	}()

	value, err := c.Collect(ctx)
	if err != nil {
		return domain.StoreRecord{}, err
	}
	b, err := json.Marshal(value)
	if err != nil {
		return domain.StoreRecord{}, fmt.Errorf("can't marshal value of type %T, err: %w", value, err)
	}
	return domain.StoreRecord{SchemeName: c.Name(), Timestamp: now, Value: string(b)}, nil
}
