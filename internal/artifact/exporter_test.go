package artifact

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"doclife/internal/clock"
	"doclife/internal/logging"
	"doclife/internal/model"
	repoMocks "doclife/internal/repository/mocks"
	"doclife/internal/storage"
	storeMocks "doclife/internal/storage/mocks"
)

func newTestExporter(t *testing.T, now time.Time) (*Exporter, *storeMocks.MockStorage, *repoMocks.MockArtifactRepository, *clock.Fake) {
	t.Helper()
	signer, err := NewSigner("secret")
	require.NoError(t, err)
	mStore := new(storeMocks.MockStorage)
	mRepo := new(repoMocks.MockArtifactRepository)
	clk := clock.NewFake(now)
	e := NewExporter(mStore, mRepo, signer, clk, "https://docs.example.com/", 10*time.Minute, 8, logging.Discard())
	return e, mStore, mRepo, clk
}

var testDoc = &model.Document{
	ID:             "doc-1",
	TenantID:       "t1",
	CurrentVersion: 2,
	Taxonomy:       model.Taxonomy{Domain: "HR", Category: "Contracts", DocType: "PDF"},
}

func TestExporter_Export(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	v := &model.Version{Number: 2, ContentHash: "abc123", CreatedBy: "bob", MimeType: "application/pdf"}

	t.Run("renders, records and signs", func(t *testing.T) {
		e, mStore, mRepo, _ := newTestExporter(t, now)

		var body string
		mStore.On("Put", ctx, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "artifacts/") && strings.HasSuffix(key, ".txt")
		}), mock.Anything, mock.MatchedBy(func(opt storage.PutObjectOptions) bool {
			return opt.ContentType == "text/plain; charset=utf-8" && opt.Size > 0
		})).Run(func(args mock.Arguments) {
			b, _ := io.ReadAll(args.Get(2).(io.Reader))
			body = string(b)
		}).Return(storage.ObjectInfo{}, nil).Once()

		mRepo.On("Create", ctx, mock.MatchedBy(func(a *model.Artifact) bool {
			return a.DocumentID == "doc-1" && a.TenantID == "t1" && a.Version == 2 &&
				a.ExpiresAt.Equal(now.Add(10*time.Minute)) && a.ObjectKey == "artifacts/"+a.FileName
		})).Return(nil).Once()

		link, err := e.Export(ctx, testDoc, 2, v)

		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(link.URL, "https://docs.example.com/documents/download-file/"+link.FileName+"?"))
		u, err := url.Parse(link.URL)
		require.NoError(t, err)
		assert.NoError(t, e.signer.Verify(link.FileName, u.Query().Get("expires"), u.Query().Get("sig"), now))
		assert.Contains(t, body, "Document ID:   doc-1")
		assert.Contains(t, body, "Version:       2 of 2")
		assert.Contains(t, body, "Content hash:  abc123")
		assert.Contains(t, body, "Tenant:        t1")

		// Second call within half the TTL reuses the link.
		again, err := e.Export(ctx, testDoc, 2, v)
		require.NoError(t, err)
		assert.Equal(t, link.URL, again.URL)
		mStore.AssertNumberOfCalls(t, "Put", 1)
	})

	t.Run("legacy version without row", func(t *testing.T) {
		e, mStore, mRepo, _ := newTestExporter(t, now)
		var body string
		mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			b, _ := io.ReadAll(args.Get(2).(io.Reader))
			body = string(b)
		}).Return(storage.ObjectInfo{}, nil).Once()
		mRepo.On("Create", ctx, mock.Anything).Return(nil).Once()

		_, err := e.Export(ctx, testDoc, 1, nil)

		require.NoError(t, err)
		assert.Contains(t, body, "Content hash:  unknown")
		assert.Contains(t, body, "Author:        unknown")
	})

	t.Run("record failure rolls back blob", func(t *testing.T) {
		e, mStore, mRepo, _ := newTestExporter(t, now)
		mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(storage.ObjectInfo{}, nil).Once()
		mRepo.On("Create", ctx, mock.Anything).Return(errors.New("db down")).Once()
		mStore.On("Delete", ctx, mock.MatchedBy(func(key string) bool { return strings.HasPrefix(key, "artifacts/") })).Return(nil).Once()

		link, err := e.Export(ctx, testDoc, 2, v)

		assert.Nil(t, link)
		assert.EqualError(t, err, "record artifact: db down")
		mStore.AssertExpectations(t)
	})

	t.Run("upload failure", func(t *testing.T) {
		e, mStore, _, _ := newTestExporter(t, now)
		mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(storage.ObjectInfo{}, errors.New("minio down")).Once()

		_, err := e.Export(ctx, testDoc, 2, v)

		assert.EqualError(t, err, "upload artifact: minio down")
	})
}

func TestExporter_Open(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	exp := now.Add(10 * time.Minute)
	sign := func(e *Exporter, name string) (string, string) {
		return strconv.FormatInt(exp.Unix(), 10), e.signer.Sign(name, exp)
	}

	t.Run("streams artifact", func(t *testing.T) {
		e, mStore, mRepo, _ := newTestExporter(t, now)
		expires, sig := sign(e, "a.txt")
		mRepo.On("FindByFileName", ctx, "a.txt").Return(&model.Artifact{ObjectKey: "artifacts/a.txt", ExpiresAt: exp}, nil).Once()
		mStore.On("Get", ctx, "artifacts/a.txt").Return(io.NopCloser(strings.NewReader("report")), storage.ObjectInfo{Size: 6}, nil).Once()

		rc, info, err := e.Open(ctx, "a.txt", expires, sig)

		require.NoError(t, err)
		defer rc.Close()
		assert.Equal(t, int64(6), info.Size)
	})

	t.Run("bad signature", func(t *testing.T) {
		e, _, _, _ := newTestExporter(t, now)
		expires, _ := sign(e, "a.txt")

		_, _, err := e.Open(ctx, "a.txt", expires, "nope")

		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("unknown artifact", func(t *testing.T) {
		e, _, mRepo, _ := newTestExporter(t, now)
		expires, sig := sign(e, "a.txt")
		mRepo.On("FindByFileName", ctx, "a.txt").Return(nil, sql.ErrNoRows).Once()

		_, _, err := e.Open(ctx, "a.txt", expires, sig)

		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("expired link", func(t *testing.T) {
		e, _, _, clk := newTestExporter(t, now)
		expires, sig := sign(e, "a.txt")
		clk.Advance(11 * time.Minute)

		_, _, err := e.Open(ctx, "a.txt", expires, sig)

		assert.ErrorIs(t, err, ErrLinkExpired)
	})

	t.Run("object already reclaimed", func(t *testing.T) {
		e, mStore, mRepo, _ := newTestExporter(t, now)
		expires, sig := sign(e, "a.txt")
		mRepo.On("FindByFileName", ctx, "a.txt").Return(&model.Artifact{ObjectKey: "artifacts/a.txt", ExpiresAt: exp}, nil).Once()
		mStore.On("Get", ctx, "artifacts/a.txt").Return(nil, storage.ObjectInfo{}, storage.ErrObjectNotFound).Once()

		_, _, err := e.Open(ctx, "a.txt", expires, sig)

		assert.ErrorIs(t, err, ErrNotFound)
	})
}
