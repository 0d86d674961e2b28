package mocks

import (
	"context"
	"io"

	"doclife/internal/artifact"
	"doclife/internal/model"
	"doclife/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockExporter struct {
	mock.Mock
}

func (m *MockExporter) Export(ctx context.Context, doc *model.Document, number int, v *model.Version) (*artifact.Link, error) {
	args := m.Called(ctx, doc, number, v)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*artifact.Link), args.Error(1)
}

func (m *MockExporter) Open(ctx context.Context, fileName, expires, signature string) (io.ReadCloser, storage.ObjectInfo, error) {
	args := m.Called(ctx, fileName, expires, signature)
	if args.Get(0) == nil {
		return nil, args.Get(1).(storage.ObjectInfo), args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(storage.ObjectInfo), args.Error(2)
}
