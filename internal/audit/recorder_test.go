package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"doclife/internal/auth"
	"doclife/internal/clock"
	"doclife/internal/model"
	"doclife/internal/repository"
	repoMocks "doclife/internal/repository/mocks"
)

func TestRecorder_Record(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	clk := clock.NewFake(now)

	t.Run("principal and request meta", func(t *testing.T) {
		mRepo := new(repoMocks.MockAuditRepository)
		rec := NewRecorder(mRepo, clk)

		ctx := auth.WithPrincipal(context.Background(), auth.Principal{Subject: "alice", Role: auth.RoleAdmin, TenantID: "t1"})
		ctx = WithRequestMeta(ctx, RequestMeta{IP: "10.0.0.1", UserAgent: "curl/8"})

		mRepo.On("Append", ctx, mock.MatchedBy(func(e *model.AuditEntry) bool {
			return e.ID != "" &&
				e.DocumentID == "doc-1" &&
				e.TenantID == "t1" &&
				e.Action == model.ActionUpdateACL &&
				e.ActorID == "alice" &&
				e.IP == "10.0.0.1" &&
				e.UserAgent == "curl/8" &&
				e.CreatedAt.Equal(now) &&
				e.Details["k"] == "v"
		})).Return(nil).Once()

		entry, err := rec.Record(ctx, Event{DocumentID: "doc-1", TenantID: "t1", Action: model.ActionUpdateACL, Details: map[string]any{"k": "v"}})
		require.NoError(t, err)
		assert.Equal(t, "alice", entry.ActorID)
		mRepo.AssertExpectations(t)
	})

	t.Run("system actor without principal", func(t *testing.T) {
		mRepo := new(repoMocks.MockAuditRepository)
		rec := NewRecorder(mRepo, clk)
		ctx := context.Background()

		mRepo.On("Append", ctx, mock.MatchedBy(func(e *model.AuditEntry) bool {
			return e.ActorID == auth.SystemActorID
		})).Return(nil).Once()

		_, err := rec.Record(ctx, Event{DocumentID: "doc-2", Action: model.ActionSoftDeleteExpiration})
		require.NoError(t, err)
		mRepo.AssertExpectations(t)
	})

	t.Run("repository error", func(t *testing.T) {
		mRepo := new(repoMocks.MockAuditRepository)
		rec := NewRecorder(mRepo, clk)
		ctx := context.Background()

		mRepo.On("Append", ctx, mock.Anything).Return(errors.New("db down")).Once()

		entry, err := rec.Record(ctx, Event{DocumentID: "doc-3", Action: model.ActionRead})
		assert.Nil(t, entry)
		assert.EqualError(t, err, "append audit entry READ: db down")
	})
}

func TestRecorder_EntryDoesNotPersist(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mRepo := new(repoMocks.MockAuditRepository)
	rec := NewRecorder(mRepo, clock.NewFake(now))
	ctx := WithRequestMeta(context.Background(), RequestMeta{IP: "127.0.0.1", UserAgent: "sweeper"})

	a := rec.Entry(ctx, Event{DocumentID: "doc-1", TenantID: "t1", Action: model.ActionSoftDeleteExpiration})
	b := rec.Entry(ctx, Event{DocumentID: "doc-1", TenantID: "t1", Action: model.ActionSoftDeleteExpiration})

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, auth.SystemActorID, a.ActorID)
	assert.Equal(t, "127.0.0.1", a.IP)
	assert.True(t, a.CreatedAt.Equal(now))
	mRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestRecorder_Trail(t *testing.T) {
	mRepo := new(repoMocks.MockAuditRepository)
	rec := NewRecorder(mRepo, clock.Real())
	ctx := context.Background()

	pq := repository.PageQuery{Limit: 10}
	want := &repository.PageResult[model.AuditEntry]{Items: []model.AuditEntry{{ID: "a1"}}, Total: 1}
	mRepo.On("ListByDocument", ctx, "t1", "doc-1", pq).Return(want, nil).Once()

	got, err := rec.Trail(ctx, "t1", "doc-1", pq)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRequestMetaFromContext(t *testing.T) {
	assert.Equal(t, RequestMeta{}, RequestMetaFromContext(context.Background()))
}
