package mocks

import (
	"context"

	"doclife/internal/model"
	"doclife/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Append(ctx context.Context, e *model.AuditEntry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockAuditRepository) ListByDocument(ctx context.Context, tenantID, documentID string, pq repository.PageQuery) (*repository.PageResult[model.AuditEntry], error) {
	args := m.Called(ctx, tenantID, documentID, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.AuditEntry]), args.Error(1)
}
