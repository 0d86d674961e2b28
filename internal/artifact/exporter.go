package artifact

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"doclife/internal/clock"
	"doclife/internal/model"
	"doclife/internal/repository"
	"doclife/internal/storage"
)

var (
	exportsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "doclife_artifact_exports_total",
		Help: "Download artifacts rendered.",
	})
	exportCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "doclife_artifact_cache_hits_total",
		Help: "Download links served from the artifact cache.",
	})
)

// Link is a signed, time-limited URL to a rendered artifact.
type Link struct {
	FileName  string    `json:"file_name"`
	URL       string    `json:"download_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Exporter renders a report for one document version into the blob store and
// records it so the janitor can reclaim it after ttl.
type Exporter struct {
	store   storage.Storage
	repo    repository.ArtifactRepository
	signer  *Signer
	clock   clock.Clock
	baseURL string
	ttl     time.Duration
	cache   *expirable.LRU[string, Link]
	logger  *slog.Logger
}

// NewExporter creates an Exporter. Links are reused for half their lifetime so
// a cached link always has at least ttl/2 left when handed out.
func NewExporter(
	store storage.Storage,
	repo repository.ArtifactRepository,
	signer *Signer,
	clk clock.Clock,
	baseURL string,
	ttl time.Duration,
	cacheSize int,
	logger *slog.Logger,
) *Exporter {
	if cacheSize <= 0 {
		cacheSize = 1
	}
	return &Exporter{
		store:   store,
		repo:    repo,
		signer:  signer,
		clock:   clk,
		baseURL: strings.TrimRight(baseURL, "/"),
		ttl:     ttl,
		cache:   expirable.NewLRU[string, Link](cacheSize, nil, ttl/2),
		logger:  logger.With(slog.String("component", "artifact-exporter")),
	}
}

func cacheKey(doc *model.Document, number int) string {
	return fmt.Sprintf("%s:%s:%d", doc.TenantID, doc.ID, number)
}

// Export renders version number of doc. v may be nil for legacy versions
// that have no stored row.
func (e *Exporter) Export(ctx context.Context, doc *model.Document, number int, v *model.Version) (*Link, error) {
	now := e.clock.Now()
	key := cacheKey(doc, number)
	if link, ok := e.cache.Get(key); ok && now.Add(e.ttl/2).Before(link.ExpiresAt) {
		exportCacheHitsTotal.Inc()
		return &link, nil
	}

	id := uuid.NewString()
	fileName := id + ".txt"
	objectKey := storage.ArtifactKey(fileName)
	body := renderReport(doc, number, v, now)

	if _, err := e.store.Put(ctx, objectKey, bytes.NewReader(body), storage.PutObjectOptions{
		Size:        int64(len(body)),
		ContentType: "text/plain; charset=utf-8",
		Metadata: map[string]string{
			"document-id": doc.ID,
			"version":     fmt.Sprint(number),
		},
	}); err != nil {
		return nil, fmt.Errorf("upload artifact: %w", err)
	}

	a := &model.Artifact{
		ID:         id,
		DocumentID: doc.ID,
		TenantID:   doc.TenantID,
		Version:    number,
		ObjectKey:  objectKey,
		FileName:   fileName,
		ExpiresAt:  now.Add(e.ttl),
		CreatedAt:  now,
	}
	if err := e.repo.Create(ctx, a); err != nil {
		// Rollback: without a row the janitor would never find the object.
		if delErr := e.store.Delete(ctx, objectKey); delErr != nil {
			return nil, fmt.Errorf("record artifact failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("record artifact: %w", err)
	}
	exportsTotal.Inc()

	link := Link{
		FileName:  fileName,
		URL:       e.signedURL(fileName, a.ExpiresAt),
		ExpiresAt: a.ExpiresAt,
	}
	e.cache.Add(key, link)
	return &link, nil
}

func (e *Exporter) signedURL(fileName string, expires time.Time) string {
	q := url.Values{}
	q.Set("expires", fmt.Sprint(expires.Unix()))
	q.Set("sig", e.signer.Sign(fileName, expires))
	return fmt.Sprintf("%s/documents/download-file/%s?%s", e.baseURL, url.PathEscape(fileName), q.Encode())
}

// Open validates a signed link and streams the artifact behind it.
func (e *Exporter) Open(ctx context.Context, fileName, expires, signature string) (io.ReadCloser, storage.ObjectInfo, error) {
	now := e.clock.Now()
	if err := e.signer.Verify(fileName, expires, signature, now); err != nil {
		return nil, storage.ObjectInfo{}, err
	}

	a, err := e.repo.FindByFileName(ctx, fileName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ObjectInfo{}, ErrNotFound
		}
		return nil, storage.ObjectInfo{}, err
	}
	if a.Expired(now) {
		return nil, storage.ObjectInfo{}, ErrLinkExpired
	}

	rc, info, err := e.store.Get(ctx, a.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, storage.ObjectInfo{}, ErrNotFound
		}
		return nil, storage.ObjectInfo{}, err
	}
	return rc, info, nil
}

func renderReport(doc *model.Document, number int, v *model.Version, now time.Time) []byte {
	hash, author, mime := "unknown", "unknown", "unknown"
	if v != nil {
		author = v.CreatedBy
		if v.ContentHash != "" {
			hash = v.ContentHash
		}
		if v.MimeType != "" {
			mime = v.MimeType
		}
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "DOCUMENT REPORT\n")
	fmt.Fprintf(&b, "===============\n\n")
	fmt.Fprintf(&b, "Document ID:   %s\n", doc.ID)
	fmt.Fprintf(&b, "Version:       %d of %d\n", number, doc.CurrentVersion)
	fmt.Fprintf(&b, "Generated at:  %s\n", now.Format(time.RFC3339))
	fmt.Fprintf(&b, "Tenant:        %s\n", doc.TenantID)
	fmt.Fprintf(&b, "Domain:        %s\n", doc.Taxonomy.Domain)
	fmt.Fprintf(&b, "Category:      %s\n", doc.Taxonomy.Category)
	fmt.Fprintf(&b, "Document type: %s\n", doc.Taxonomy.DocType)
	fmt.Fprintf(&b, "Author:        %s\n", author)
	fmt.Fprintf(&b, "MIME type:     %s\n", mime)
	fmt.Fprintf(&b, "Content hash:  %s\n", hash)
	return b.Bytes()
}
