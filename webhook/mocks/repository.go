// Package mocks provides hand-maintained testify mocks for the webhook
// repository interface.
package mocks

import (
	"context"
	"time"

	"github.com/Juzanki/smartbiz-hub/webhook"
	"github.com/stretchr/testify/mock"
)

// Repository is a mock implementation of webhook.Repository
type Repository struct {
	mock.Mock
}

// NewRepository creates a new mock and registers cleanup assertions on t
func NewRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *Repository {
	m := &Repository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *Repository) GetEndpoint(ctx context.Context, id string) (webhook.Endpoint, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(webhook.Endpoint), args.Error(1)
}

func (m *Repository) ListEndpointsByUser(ctx context.Context, userID int64) ([]webhook.Endpoint, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]webhook.Endpoint), args.Error(1)
}

func (m *Repository) ListActiveEndpoints(ctx context.Context, userID int64) ([]webhook.Endpoint, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]webhook.Endpoint), args.Error(1)
}

func (m *Repository) StoreEndpoint(ctx context.Context, e webhook.Endpoint) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *Repository) UpdateEndpoint(ctx context.Context, e webhook.Endpoint) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *Repository) DeleteEndpoint(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *Repository) GetDelivery(ctx context.Context, id string) (webhook.DeliveryLog, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(webhook.DeliveryLog), args.Error(1)
}

func (m *Repository) ListDeliveriesByEndpoint(ctx context.Context, endpointID string, limit int) ([]webhook.DeliveryLog, error) {
	args := m.Called(ctx, endpointID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]webhook.DeliveryLog), args.Error(1)
}

func (m *Repository) DueRetries(ctx context.Context, now time.Time, limit int) ([]webhook.DeliveryLog, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]webhook.DeliveryLog), args.Error(1)
}

func (m *Repository) CountDeliveriesByStatus(ctx context.Context) (map[string]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

func (m *Repository) StoreDelivery(ctx context.Context, l webhook.DeliveryLog) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *Repository) UpdateDelivery(ctx context.Context, l webhook.DeliveryLog) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *Repository) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
