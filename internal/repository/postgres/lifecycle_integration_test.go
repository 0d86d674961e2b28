package postgres

import (
	"context"
	"database/sql"
	"io"
	"strings"
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
	"doclife/internal/repository"
	"doclife/internal/retention"
	"doclife/internal/service"
	"doclife/internal/storage"
	storeMocks "doclife/internal/storage/mocks"
)

// lifecycle wires the service and the sweeper over a real database, with
// only the blob store mocked.
type lifecycle struct {
	clock   *clock.Fake
	store   *storeMocks.MockStorage
	docs    *DocumentPostgres
	audits  *AuditPostgres
	svc     service.DocumentService
	sweeper *retention.Sweeper
}

func newLifecycle(db *sql.DB, start time.Time) *lifecycle {
	l := &lifecycle{
		clock:  clock.NewFake(start),
		store:  new(storeMocks.MockStorage),
		docs:   NewDocumentPostgres(db),
		audits: NewAuditPostgres(db),
	}
	l.store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		_, _ = io.ReadAll(args.Get(2).(io.Reader))
	}).Return(storage.ObjectInfo{}, nil).Maybe()
	l.store.On("Delete", mock.Anything, mock.Anything).Return(nil).Maybe()

	versions := NewVersionPostgres(db)
	recorder := audit.NewRecorder(l.audits, l.clock)
	l.svc = service.NewDocumentService(service.Deps{
		Store:    l.store,
		Docs:     l.docs,
		Versions: versions,
		Recorder: recorder,
		Clock:    l.clock,
		Logger:   logging.Discard(),
	})
	l.sweeper = retention.NewSweeper(l.docs, versions, l.store, recorder, l.clock, logging.Discard())
	return l
}

func (l *lifecycle) createContract(t *testing.T, ctx context.Context) *model.Document {
	t.Helper()
	doc, err := l.svc.Create(ctx, service.CreateDocumentInput{
		Taxonomy: model.Taxonomy{Domain: "HR", Category: "Contracts", DocType: "PDF"},
		Content:  strings.NewReader("%PDF-1.7 v1"),
		FileName: "contract.pdf",
		MimeType: "application/pdf",
	})
	require.NoError(t, err)
	return doc
}

func (l *lifecycle) actions(t *testing.T, tenantID, documentID string) []string {
	t.Helper()
	page, err := l.audits.ListByDocument(context.Background(), tenantID, documentID, repository.PageQuery{Limit: 100})
	require.NoError(t, err)
	out := make([]string, 0, len(page.Items))
	for _, e := range page.Items {
		out = append(out, e.Action)
	}
	return out
}

func succeeded(res *retention.SweepResult, id string) bool {
	for _, d := range res.Succeeded {
		if d.DocumentID == id {
			return true
		}
	}
	return false
}

func failed(res *retention.SweepResult, id string) bool {
	for _, f := range res.Failed {
		if f.DocumentID == id {
			return true
		}
	}
	return false
}

func countOf(actions []string, action string) int {
	n := 0
	for _, a := range actions {
		if a == action {
			n++
		}
	}
	return n
}

func TestIntegration_LifecycleScenarios(t *testing.T) {
	db := setupTestDB(t)
	start := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	admin := auth.Principal{Subject: "ann", Role: auth.RoleAdmin, TenantID: "tenant-1"}
	ctx := auth.WithPrincipal(context.Background(), admin)

	t.Run("two revisions give a three entry history", func(t *testing.T) {
		l := newLifecycle(db, start)
		doc := l.createContract(t, ctx)

		for i, body := range []string{"%PDF-1.7 v2", "%PDF-1.7 v3"} {
			l.clock.Advance(time.Minute)
			res, err := l.svc.CreateVersion(ctx, doc.ID, service.CreateVersionInput{
				Comment:  "revision",
				Content:  strings.NewReader(body),
				FileName: "contract.pdf",
				MimeType: "application/pdf",
			})
			require.NoError(t, err)
			assert.Equal(t, i+2, res.NewVersion)
		}

		history, err := l.svc.ListVersions(ctx, doc.ID)
		require.NoError(t, err)
		require.Len(t, history, 3)
		statuses := make([]model.VersionStatus, 0, 3)
		for i, d := range history {
			assert.Equal(t, i+1, d.Version)
			assert.Equal(t, "ann", d.Author)
			assert.NotEmpty(t, d.ContentHash)
			statuses = append(statuses, d.Status)
		}
		assert.Equal(t, []model.VersionStatus{model.VersionArchived, model.VersionArchived, model.VersionCurrent}, statuses)
	})

	t.Run("soft retention hides the document after expiry", func(t *testing.T) {
		l := newLifecycle(db, start)
		doc := l.createContract(t, ctx)
		_, err := l.svc.UpdateRetention(ctx, doc.ID, retention.Policy{PolicyID: "RET-1", Years: 5, Mode: "SOFT"})
		require.NoError(t, err)

		l.clock.AdvanceDate(5, 0, 1)
		res, err := l.sweeper.RunRetentionSweep(context.Background())
		require.NoError(t, err)
		assert.True(t, succeeded(res, doc.ID))

		got, err := l.svc.Get(ctx, doc.ID)
		require.NoError(t, err)
		require.NotNil(t, got.DeletedAt)
		assert.True(t, got.DeletedAt.Equal(l.clock.Now()))

		list, err := l.svc.List(ctx, service.ListFilter{Domain: "HR", Limit: 100})
		require.NoError(t, err)
		for _, d := range list.Items {
			assert.NotEqual(t, doc.ID, d.ID)
		}

		trail, err := l.svc.AuditTrail(ctx, doc.ID, 1, 100)
		require.NoError(t, err)
		var disposal *model.AuditEntry
		for i := range trail.Items {
			if trail.Items[i].Action == model.ActionSoftDeleteExpiration {
				disposal = &trail.Items[i]
			}
		}
		require.NotNil(t, disposal)
		assert.Equal(t, auth.SystemActorID, disposal.ActorID)
		assert.Equal(t, "RET-1", disposal.Details["policyId"])
		assert.Equal(t, "SUCCESS", disposal.Details["result"])
	})

	t.Run("hard retention removes the document after expiry", func(t *testing.T) {
		l := newLifecycle(db, start)
		doc := l.createContract(t, ctx)
		_, err := l.svc.UpdateRetention(ctx, doc.ID, retention.Policy{PolicyID: "RET-2", Years: 5, Mode: "HARD"})
		require.NoError(t, err)

		_, err = l.svc.Remove(ctx, doc.ID)
		var lockErr *retention.LockError
		require.ErrorAs(t, err, &lockErr)

		l.clock.AdvanceDate(5, 0, 1)
		res, err := l.sweeper.RunRetentionSweep(context.Background())
		require.NoError(t, err)
		assert.True(t, succeeded(res, doc.ID))

		_, err = l.svc.Get(ctx, doc.ID)
		assert.ErrorIs(t, err, service.ErrNotFound)
		l.store.AssertCalled(t, "Delete", mock.Anything, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "documents/"+doc.ID+"/")
		}))

		actions := l.actions(t, "tenant-1", doc.ID)
		assert.Equal(t, 1, countOf(actions, model.ActionHardDeleteExpiration))
	})

	t.Run("failed audit write leaves the document for the next sweep", func(t *testing.T) {
		l := newLifecycle(db, start)
		doc := l.createContract(t, ctx)
		_, err := l.svc.UpdateRetention(ctx, doc.ID, retention.Policy{PolicyID: "RET-3", Years: 1, Mode: "SOFT"})
		require.NoError(t, err)
		l.clock.AdvanceDate(1, 0, 1)

		_, err = db.ExecContext(context.Background(), `ALTER TABLE audit_log RENAME TO audit_log_off`)
		require.NoError(t, err)
		restored := false
		t.Cleanup(func() {
			if !restored {
				_, _ = db.ExecContext(context.Background(), `ALTER TABLE audit_log_off RENAME TO audit_log`)
			}
		})

		first, err := l.sweeper.RunRetentionSweep(context.Background())
		require.NoError(t, err)
		assert.True(t, failed(first, doc.ID))

		stored, err := l.docs.FindByID(context.Background(), doc.ID)
		require.NoError(t, err)
		assert.False(t, stored.IsDeleted(), "disposal must roll back with the audit write")

		_, err = db.ExecContext(context.Background(), `ALTER TABLE audit_log_off RENAME TO audit_log`)
		require.NoError(t, err)
		restored = true

		l.clock.Advance(time.Hour)
		second, err := l.sweeper.RunRetentionSweep(context.Background())
		require.NoError(t, err)
		assert.True(t, succeeded(second, doc.ID))

		stored, err = l.docs.FindByID(context.Background(), doc.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsDeleted())
		assert.Equal(t, 1, countOf(l.actions(t, "tenant-1", doc.ID), model.ActionSoftDeleteExpiration))
	})
}
