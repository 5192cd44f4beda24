package interfaces

import (
	"context"
	"time"

	"myregistry/domain"
)

// RecordImporter appends collected records for an instance.
//
//go:generate moq -stub -out mock/record_importer.go -pkg mock . RecordImporter
type RecordImporter interface {
	// EnsureSchema prepares storage for the given schemes. Implementations may treat it as a no-op.
	EnsureSchema(ctx context.Context, target domain.HostAndPort, schemes []string) error
	// AddRecords appends records and drops the ones older than the configured TTL.
	AddRecords(ctx context.Context, target domain.HostAndPort, records []domain.StoreRecord) error
}

// RecordExporter reads back what RecordImporter stored.
//
//go:generate moq -stub -out mock/record_exporter.go -pkg mock . RecordExporter
type RecordExporter interface {
	// GetLatestRecords returns records of scheme newer than now-duration, oldest first.
	GetLatestRecords(ctx context.Context, target domain.HostAndPort, scheme string, duration time.Duration) ([]domain.StoreRecord, error)
}

// Collector produces one value per recording run. The value is stored as JSON text.
//
//go:generate moq -stub -out mock/collector.go -pkg mock . Collector
type Collector interface {
	Name() string
	Collect(ctx context.Context) (any, error)
}
