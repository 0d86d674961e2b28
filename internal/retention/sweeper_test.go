package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"doclife/internal/audit"
	"doclife/internal/auth"
	"doclife/internal/clock"
	"doclife/internal/logging"
	"doclife/internal/model"
	repoMocks "doclife/internal/repository/mocks"
	storeMocks "doclife/internal/storage/mocks"
)

type sweeperFixture struct {
	docs     *repoMocks.MockDocumentRepository
	versions *repoMocks.MockVersionRepository
	audits   *repoMocks.MockAuditRepository
	store    *storeMocks.MockStorage
	clock    *clock.Fake
	sweeper  *Sweeper
}

func newSweeperFixture(now time.Time) *sweeperFixture {
	f := &sweeperFixture{
		docs:     new(repoMocks.MockDocumentRepository),
		versions: new(repoMocks.MockVersionRepository),
		audits:   new(repoMocks.MockAuditRepository),
		store:    new(storeMocks.MockStorage),
		clock:    clock.NewFake(now),
	}
	f.sweeper = NewSweeper(f.docs, f.versions, f.store, audit.NewRecorder(f.audits, f.clock), f.clock, logging.Discard())
	return f
}

func expiredDoc(id string, mode model.DisposalMode, deleteAt time.Time) model.Document {
	return model.Document{
		ID:             id,
		TenantID:       "t1",
		CurrentVersion: 2,
		Retention:      &model.Retention{PolicyID: "RET-" + id, DeleteAt: deleteAt, Mode: mode},
	}
}

func TestSweeper_RunRetentionSweep(t *testing.T) {
	now := time.Date(2031, 1, 2, 0, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -1)
	f := newSweeperFixture(now)

	f.docs.On("ListExpired", mock.Anything, now).Return([]model.Document{
		expiredDoc("hard", model.DisposalHard, past),
		expiredDoc("soft", model.DisposalSoft, past),
		expiredDoc("broken", model.DisposalSoft, past),
		expiredDoc("raced", model.DisposalHard, past),
	}, nil).Once()

	f.versions.On("ListByDocument", mock.Anything, "hard").Return([]model.Version{
		{Number: 1, StorageKey: "documents/hard/v1.pdf"},
		{Number: 2, StorageKey: "documents/hard/v2.pdf"},
	}, nil).Once()
	f.versions.On("ListByDocument", mock.Anything, "raced").Return([]model.Version{}, nil).Once()

	f.docs.On("DisposeHard", mock.Anything, "hard", now, mock.MatchedBy(func(e *model.AuditEntry) bool {
		return e.DocumentID == "hard" &&
			e.TenantID == "t1" &&
			e.Action == model.ActionHardDeleteExpiration &&
			e.ActorID == auth.SystemActorID &&
			e.IP == "127.0.0.1" &&
			e.UserAgent == "doclife-retention-sweeper" &&
			e.Details["result"] == "SUCCESS" &&
			e.Details["policyId"] == "RET-hard" &&
			e.Details["version"] == 2 &&
			e.Details["executionDate"] == now.Format(time.RFC3339) &&
			e.CreatedAt.Equal(now)
	})).Return(true, nil).Once()
	f.docs.On("DisposeSoft", mock.Anything, "soft", now, mock.MatchedBy(func(e *model.AuditEntry) bool {
		return e.DocumentID == "soft" && e.Action == model.ActionSoftDeleteExpiration
	})).Return(true, nil).Once()
	f.docs.On("DisposeSoft", mock.Anything, "broken", now, mock.Anything).Return(false, errors.New("connection reset")).Once()
	f.docs.On("DisposeHard", mock.Anything, "raced", now, mock.Anything).Return(false, nil).Once()

	f.store.On("Delete", mock.Anything, "documents/hard/v1.pdf").Return(nil).Once()
	f.store.On("Delete", mock.Anything, "documents/hard/v2.pdf").Return(errors.New("gone")).Once()

	res, err := f.sweeper.RunRetentionSweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []Disposal{
		{DocumentID: "hard", TenantID: "t1", Action: model.ActionHardDeleteExpiration, Version: 2},
		{DocumentID: "soft", TenantID: "t1", Action: model.ActionSoftDeleteExpiration, Version: 2},
	}, res.Succeeded)
	assert.Equal(t, []Failure{{DocumentID: "broken", Reason: "dispose: connection reset"}}, res.Failed)
	assert.Equal(t, []string{"raced"}, res.Skipped)
	assert.Equal(t, now, res.StartedAt)

	f.docs.AssertExpectations(t)
	f.versions.AssertExpectations(t)
	f.audits.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	f.store.AssertExpectations(t)
}

func TestSweeper_FailedAuditWriteLeavesDocumentForNextSweep(t *testing.T) {
	now := time.Date(2031, 1, 2, 0, 0, 0, 0, time.UTC)
	f := newSweeperFixture(now)
	doc := expiredDoc("soft", model.DisposalSoft, now)
	isEntry := mock.MatchedBy(func(e *model.AuditEntry) bool {
		return e.DocumentID == "soft" && e.Action == model.ActionSoftDeleteExpiration && e.Details["result"] == "SUCCESS"
	})

	// The repository rolls the disposal back when the audit insert fails,
	// so the document is still a candidate on the following run.
	f.docs.On("ListExpired", mock.Anything, mock.Anything).Return([]model.Document{doc}, nil).Twice()
	f.docs.On("DisposeSoft", mock.Anything, "soft", mock.Anything, isEntry).
		Return(false, errors.New("append audit entry SOFT_DELETE_EXPIRATION: audit down")).Once()
	f.docs.On("DisposeSoft", mock.Anything, "soft", mock.Anything, isEntry).Return(true, nil).Once()

	first, err := f.sweeper.RunRetentionSweep(context.Background())
	require.NoError(t, err)
	assert.Empty(t, first.Succeeded)
	require.Len(t, first.Failed, 1)
	assert.Equal(t, "dispose: append audit entry SOFT_DELETE_EXPIRATION: audit down", first.Failed[0].Reason)

	f.clock.Advance(time.Hour)
	second, err := f.sweeper.RunRetentionSweep(context.Background())
	require.NoError(t, err)
	assert.Empty(t, second.Failed)
	assert.Equal(t, []Disposal{
		{DocumentID: "soft", TenantID: "t1", Action: model.ActionSoftDeleteExpiration, Version: 2},
	}, second.Succeeded)

	f.docs.AssertExpectations(t)
	f.audits.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestSweeper_ListFailure(t *testing.T) {
	now := time.Date(2031, 1, 2, 0, 0, 0, 0, time.UTC)
	f := newSweeperFixture(now)

	f.docs.On("ListExpired", mock.Anything, now).Return(nil, errors.New("db down")).Once()

	res, err := f.sweeper.RunRetentionSweep(context.Background())

	assert.Nil(t, res)
	assert.EqualError(t, err, "list expired documents: db down")
}

func TestSweeper_EmptyBatch(t *testing.T) {
	now := time.Date(2031, 1, 2, 0, 0, 0, 0, time.UTC)
	f := newSweeperFixture(now)

	f.docs.On("ListExpired", mock.Anything, now).Return([]model.Document{}, nil).Once()

	res, err := f.sweeper.RunRetentionSweep(context.Background())

	require.NoError(t, err)
	assert.Empty(t, res.Succeeded)
	assert.Empty(t, res.Failed)
	assert.Empty(t, res.Skipped)
}

func TestSweeper_NoBlobStore(t *testing.T) {
	now := time.Date(2031, 1, 2, 0, 0, 0, 0, time.UTC)
	docs := new(repoMocks.MockDocumentRepository)
	audits := new(repoMocks.MockAuditRepository)
	clk := clock.NewFake(now)
	s := NewSweeper(docs, nil, nil, audit.NewRecorder(audits, clk), clk, logging.Discard())

	docs.On("ListExpired", mock.Anything, now).Return([]model.Document{expiredDoc("hard", model.DisposalHard, now)}, nil).Once()
	docs.On("DisposeHard", mock.Anything, "hard", now, mock.Anything).Return(true, nil).Once()

	res, err := s.RunRetentionSweep(context.Background())

	require.NoError(t, err)
	assert.Len(t, res.Succeeded, 1)
}
