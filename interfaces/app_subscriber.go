package interfaces

import "myregistry/domain"

// AppSubscriber answers queries over the cluster-wide set of registered instances.
// Reads come from an in-memory snapshot and never fail.
//
//go:generate moq -stub -out mock/app_subscriber.go -pkg mock . AppSubscriber
type AppSubscriber interface {
	// GetAll returns every instance sorted by domain.Application.Compare.
	GetAll() []domain.Application
	// GetByName returns the instances of one application, empty (never nil) when unknown.
	GetByName(name string) []domain.Application
	// GetAllNames returns the sorted application names that have at least one instance.
	GetAllNames() []string
	// SummaryCounts returns the instance count per application name.
	SummaryCounts() map[string]int
}
