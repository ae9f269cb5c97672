package mocks

import (
	"context"

	"github.com/Juzanki/smartbiz-hub/event"
	"github.com/Juzanki/smartbiz-hub/webhook"
	"github.com/stretchr/testify/mock"
)

// UseCase is a mock implementation of webhook.UseCase
type UseCase struct {
	mock.Mock
}

// NewUseCase creates a new mock and registers cleanup assertions on t
func NewUseCase(t interface {
	mock.TestingT
	Cleanup(func())
}) *UseCase {
	m := &UseCase{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *UseCase) RegisterEndpoint(ctx context.Context, e webhook.Endpoint) (webhook.Endpoint, error) {
	args := m.Called(ctx, e)
	return args.Get(0).(webhook.Endpoint), args.Error(1)
}

func (m *UseCase) GetEndpoint(ctx context.Context, id string) (webhook.Endpoint, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(webhook.Endpoint), args.Error(1)
}

func (m *UseCase) ListEndpoints(ctx context.Context, userID int64) ([]webhook.Endpoint, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]webhook.Endpoint), args.Error(1)
}

func (m *UseCase) UpdateEndpoint(ctx context.Context, e webhook.Endpoint) (webhook.Endpoint, error) {
	args := m.Called(ctx, e)
	return args.Get(0).(webhook.Endpoint), args.Error(1)
}

func (m *UseCase) DeleteEndpoint(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *UseCase) RotateSecret(ctx context.Context, id string) (webhook.Endpoint, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(webhook.Endpoint), args.Error(1)
}

func (m *UseCase) Deliveries(ctx context.Context, endpointID string, limit int) ([]webhook.DeliveryLog, error) {
	args := m.Called(ctx, endpointID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]webhook.DeliveryLog), args.Error(1)
}

func (m *UseCase) Emit(ctx context.Context, userID int64, ev event.Event) (int, error) {
	args := m.Called(ctx, userID, ev)
	return args.Int(0), args.Error(1)
}
