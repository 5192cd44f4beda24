package interfaces

import (
	"context"

	"myregistry/domain"
)

// AppPublisher announces the local instance in the registry.
//
//go:generate moq -stub -out mock/app_publisher.go -pkg mock . AppPublisher
type AppPublisher interface {
	Register(ctx context.Context) error
	Unregister(ctx context.Context) error
	UpdateState(ctx context.Context, state string) error
	Application() domain.Application
}
