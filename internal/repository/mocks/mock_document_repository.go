package mocks

import (
	"context"
	"time"

	"doclife/internal/model"
	"doclife/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, doc *model.Document, first *model.Version) error {
	args := m.Called(ctx, doc, first)
	return args.Error(0)
}

func (m *MockDocumentRepository) FindByID(ctx context.Context, id string) (*model.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) List(ctx context.Context, f repository.DocumentFilter, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	args := m.Called(ctx, f, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Document]), args.Error(1)
}

func (m *MockDocumentRepository) AppendVersion(ctx context.Context, v *model.Version, now time.Time) (*model.Document, error) {
	args := m.Called(ctx, v, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) UpdateACL(ctx context.Context, id string, patch model.ACLPatch, now time.Time) (*model.Document, error) {
	args := m.Called(ctx, id, patch, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) UpdateRetention(ctx context.Context, id string, r model.Retention, now time.Time) (*model.Document, error) {
	args := m.Called(ctx, id, r, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, id string, now time.Time, entry *model.AuditEntry) (bool, error) {
	args := m.Called(ctx, id, now, entry)
	return args.Bool(0), args.Error(1)
}

func (m *MockDocumentRepository) ListExpired(ctx context.Context, now time.Time) ([]model.Document, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

func (m *MockDocumentRepository) DisposeHard(ctx context.Context, id string, now time.Time, entry *model.AuditEntry) (bool, error) {
	args := m.Called(ctx, id, now, entry)
	return args.Bool(0), args.Error(1)
}

func (m *MockDocumentRepository) DisposeSoft(ctx context.Context, id string, now time.Time, entry *model.AuditEntry) (bool, error) {
	args := m.Called(ctx, id, now, entry)
	return args.Bool(0), args.Error(1)
}
