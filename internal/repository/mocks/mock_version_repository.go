package mocks

import (
	"context"

	"doclife/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockVersionRepository struct {
	mock.Mock
}

func (m *MockVersionRepository) ListByDocument(ctx context.Context, documentID string) ([]model.Version, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Version), args.Error(1)
}

func (m *MockVersionRepository) FindByNumber(ctx context.Context, documentID string, number int) (*model.Version, error) {
	args := m.Called(ctx, documentID, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Version), args.Error(1)
}
