package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"doclife/internal/acl"
	"doclife/internal/artifact"
	"doclife/internal/audit"
	"doclife/internal/auth"
	"doclife/internal/clock"
	"doclife/internal/model"
	"doclife/internal/repository"
	"doclife/internal/retention"
	"doclife/internal/storage"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
	maxPage      = 1_000_000
)

// CreateDocumentInput carries the fields of a new document. Content is optional;
// without it version 1 is recorded with no blob.
type CreateDocumentInput struct {
	ProcessID string
	Taxonomy  model.Taxonomy
	ACL       model.ACL
	Content   io.Reader
	FileName  string
	MimeType  string
	Size      int64
}

// CreateVersionInput carries an uploaded revision.
type CreateVersionInput struct {
	Comment  string
	Content  io.Reader
	FileName string
	MimeType string
	Size     int64
}

// VersionResult is returned after a version is recorded.
type VersionResult struct {
	Message     string `json:"message"`
	DocumentID  string `json:"document_id"`
	NewVersion  int    `json:"new_version"`
	Comment     string `json:"comment,omitempty"`
	ContentHash string `json:"content_hash"`
}

// DownloadResult is returned when a download artifact is produced.
type DownloadResult struct {
	Message     string    `json:"message"`
	DownloadURL string    `json:"download_url"`
	FileName    string    `json:"file_name"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// DeleteResult describes a completed manual delete.
type DeleteResult struct {
	ID        string    `json:"id"`
	Mode      string    `json:"mode"`
	DeletedAt time.Time `json:"deleted_at"`
}

// ListFilter narrows List. Zero Page and Limit fall back to 1 and 10.
type ListFilter struct {
	Domain string
	Page   int
	Limit  int
}

// ListMeta describes the page returned.
type ListMeta struct {
	Total    int `json:"total"`
	Page     int `json:"page"`
	LastPage int `json:"last_page"`
}

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Meta  ListMeta         `json:"meta"`
}

// AuditTrailResult is a page of audit entries.
type AuditTrailResult struct {
	Items []model.AuditEntry `json:"data"`
	Meta  ListMeta           `json:"meta"`
}

// ArtifactExporter renders a document version into a signed download link.
type ArtifactExporter interface {
	Export(ctx context.Context, doc *model.Document, number int, v *model.Version) (*artifact.Link, error)
}

// DocumentService defines the lifecycle use cases. The acting principal is
// taken from ctx (see auth.WithPrincipal).
type DocumentService interface {
	// Create stores a new document at version 1 in the principal's tenant.
	Create(ctx context.Context, in CreateDocumentInput) (*model.Document, error)

	// CreateVersion uploads a new revision and increments the version counter.
	CreateVersion(ctx context.Context, id string, in CreateVersionInput) (*VersionResult, error)

	// DownloadURL renders a version into a short-lived artifact and returns a signed link.
	// A nil version means the current one.
	DownloadURL(ctx context.Context, id string, version *int) (*DownloadResult, error)

	// ListVersions returns the full version history, oldest first.
	ListVersions(ctx context.Context, id string) ([]model.VersionDescriptor, error)

	// UpdateACL merges the non-nil lists of patch into the document's ACL.
	UpdateACL(ctx context.Context, id string, patch model.ACLPatch) (*model.Document, error)

	// UpdateRetention attaches a retention policy, replacing any previous one.
	UpdateRetention(ctx context.Context, id string, p retention.Policy) (*model.Document, error)

	// Remove hard-deletes a document unless it is under retention.
	Remove(ctx context.Context, id string) (*DeleteResult, error)

	// Get returns a single document by its ID, including soft-deleted ones.
	Get(ctx context.Context, id string) (*model.Document, error)

	// List returns the tenant's live documents, newest first.
	List(ctx context.Context, f ListFilter) (*DocumentListResult, error)

	// AuditTrail lists a document's audit entries, newest first.
	AuditTrail(ctx context.Context, id string, page, limit int) (*AuditTrailResult, error)
}

// Deps wires a documentService.
type Deps struct {
	Store    storage.Storage
	Docs     repository.DocumentRepository
	Versions repository.VersionRepository
	Recorder *audit.Recorder
	Exporter ArtifactExporter
	Clock    clock.Clock
	Logger   *slog.Logger
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store    storage.Storage
	docs     repository.DocumentRepository
	versions repository.VersionRepository
	recorder *audit.Recorder
	exporter ArtifactExporter
	clock    clock.Clock
	logger   *slog.Logger
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(d Deps) DocumentService {
	clk := d.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &documentService{
		store:    d.Store,
		docs:     d.Docs,
		versions: d.Versions,
		recorder: d.Recorder,
		exporter: d.Exporter,
		clock:    clk,
		logger:   logger.With(slog.String("component", "document-service")),
	}
}

func (s *documentService) Create(ctx context.Context, in CreateDocumentInput) (*model.Document, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	doc := &model.Document{
		ID:             uuid.NewString(),
		TenantID:       p.TenantID,
		ProcessID:      in.ProcessID,
		Taxonomy:       in.Taxonomy,
		CurrentVersion: 1,
		ACL:            in.ACL,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	first := &model.Version{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		Number:     1,
		Comment:    "initial version",
		CreatedBy:  p.Subject,
		CreatedAt:  now,
	}
	if in.Content != nil {
		if err := s.upload(ctx, first, in.Content, in.FileName, in.MimeType, in.Size); err != nil {
			return nil, err
		}
	}

	if err := s.docs.Create(ctx, doc, first); err != nil {
		return nil, s.rollbackBlob(ctx, first.StorageKey, fmt.Errorf("db save failed: %w", err))
	}

	if _, err := s.recorder.Record(ctx, audit.Event{
		DocumentID: doc.ID,
		TenantID:   doc.TenantID,
		Action:     model.ActionCreate,
		Details: map[string]any{
			"taxonomy":  doc.Taxonomy,
			"processId": doc.ProcessID,
		},
	}); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *documentService) CreateVersion(ctx context.Context, id string, in CreateVersionInput) (*VersionResult, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	if in.Content == nil {
		return nil, ErrContentRequired
	}
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.IsDeleted() {
		return nil, ErrNotFound
	}
	if err := authorize(p, doc, acl.PermUpdate); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	v := &model.Version{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		Comment:    in.Comment,
		CreatedBy:  p.Subject,
		CreatedAt:  now,
	}
	if err := s.upload(ctx, v, in.Content, in.FileName, in.MimeType, in.Size); err != nil {
		return nil, err
	}

	if _, err := s.docs.AppendVersion(ctx, v, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrNotFound
		} else {
			err = fmt.Errorf("db save failed: %w", err)
		}
		return nil, s.rollbackBlob(ctx, v.StorageKey, err)
	}

	if _, err := s.recorder.Record(ctx, audit.Event{
		DocumentID: doc.ID,
		TenantID:   doc.TenantID,
		Action:     model.ActionCreateVersion,
		Details: map[string]any{
			"version":     v.Number,
			"comment":     v.Comment,
			"contentHash": v.ContentHash,
		},
	}); err != nil {
		return nil, err
	}

	return &VersionResult{
		Message:     "version recorded",
		DocumentID:  doc.ID,
		NewVersion:  v.Number,
		Comment:     v.Comment,
		ContentHash: v.ContentHash,
	}, nil
}

func (s *documentService) DownloadURL(ctx context.Context, id string, version *int) (*DownloadResult, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(p, doc, acl.PermRead); err != nil {
		return nil, err
	}

	number := doc.CurrentVersion
	if version != nil {
		number = *version
	}
	if number < 1 || number > doc.CurrentVersion {
		return nil, fmt.Errorf("%w: version %d, document has %d", ErrVersionOutOfRange, number, doc.CurrentVersion)
	}

	v, err := s.versions.FindByNumber(ctx, doc.ID, number)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		v = nil
	}

	link, err := s.exporter.Export(ctx, doc, number, v)
	if err != nil {
		return nil, err
	}

	if _, err := s.recorder.Record(ctx, audit.Event{
		DocumentID: doc.ID,
		TenantID:   doc.TenantID,
		Action:     model.ActionDownload,
		Details: map[string]any{
			"version":  number,
			"fileName": link.FileName,
		},
	}); err != nil {
		return nil, err
	}

	ttl := link.ExpiresAt.Sub(s.clock.Now()).Round(time.Second)
	return &DownloadResult{
		Message:     fmt.Sprintf("Artifact generated. Download it within %s, after which it is removed.", ttl),
		DownloadURL: link.URL,
		FileName:    link.FileName,
		ExpiresAt:   link.ExpiresAt,
	}, nil
}

func (s *documentService) ListVersions(ctx context.Context, id string) ([]model.VersionDescriptor, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(p, doc, acl.PermRead); err != nil {
		return nil, err
	}

	rows, err := s.versions.ListByDocument(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	byNumber := make(map[int]model.Version, len(rows))
	for _, v := range rows {
		byNumber[v.Number] = v
	}

	// Documents created before version rows existed have gaps; those
	// numbers are reported with an unknown author.
	out := make([]model.VersionDescriptor, 0, doc.CurrentVersion)
	for n := 1; n <= doc.CurrentVersion; n++ {
		d := model.VersionDescriptor{
			Version:    n,
			DocumentID: doc.ID,
			Author:     "unknown",
			Status:     model.VersionArchived,
		}
		if v, ok := byNumber[n]; ok {
			createdAt := v.CreatedAt
			d.Author = v.CreatedBy
			d.StorageKey = v.StorageKey
			d.ContentHash = v.ContentHash
			d.MimeType = v.MimeType
			d.CreatedAt = &createdAt
		}
		if n == doc.CurrentVersion {
			d.Status = model.VersionCurrent
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *documentService) UpdateACL(ctx context.Context, id string, patch model.ACLPatch) (*model.Document, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return nil, ErrEmptyACLPatch
	}
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(p, doc, acl.PermManage); err != nil {
		return nil, err
	}

	updated, err := s.docs.UpdateACL(ctx, id, patch, s.clock.Now())
	if err != nil {
		return nil, notFound(err)
	}

	if _, err := s.recorder.Record(ctx, audit.Event{
		DocumentID: doc.ID,
		TenantID:   doc.TenantID,
		Action:     model.ActionUpdateACL,
		Details:    map[string]any{"newAcl": patch},
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *documentService) UpdateRetention(ctx context.Context, id string, policy retention.Policy) (*model.Document, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	ret, err := policy.Resolve(now)
	if err != nil {
		return nil, invalidArgument(err)
	}
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(p, doc, acl.PermUpdate); err != nil {
		return nil, err
	}

	updated, err := s.docs.UpdateRetention(ctx, id, ret, now)
	if err != nil {
		return nil, notFound(err)
	}

	if _, err := s.recorder.Record(ctx, audit.Event{
		DocumentID: doc.ID,
		TenantID:   doc.TenantID,
		Action:     model.ActionUpdateRetention,
		Details: map[string]any{
			"policyId": ret.PolicyID,
			"years":    policy.Years,
			"mode":     string(ret.Mode),
			"deleteAt": ret.DeleteAt.Format(time.RFC3339),
		},
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *documentService) Remove(ctx context.Context, id string) (*DeleteResult, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	// The lock is checked before the ACL so any caller in the tenant sees it.
	if p.Role != auth.RoleSystem && p.TenantID != doc.TenantID {
		return nil, ErrTenantMismatch
	}
	now := s.clock.Now()
	if err := retention.Guard(doc.Retention, now); err != nil {
		return nil, forbidden(err)
	}
	if err := authorize(p, doc, acl.PermManage); err != nil {
		return nil, err
	}

	// Version rows cascade with the document, so collect blob keys first.
	keys := s.blobKeys(ctx, doc.ID)

	entry := s.recorder.Entry(ctx, audit.Event{
		DocumentID: doc.ID,
		TenantID:   doc.TenantID,
		Action:     model.ActionDelete,
		Details: map[string]any{
			"mode":     string(model.DisposalHard),
			"versions": doc.CurrentVersion,
		},
	})
	removed, err := s.docs.Delete(ctx, id, now, entry)
	if err != nil {
		return nil, err
	}
	if !removed {
		// Lost a race: the row vanished or a retention policy was attached.
		current, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := retention.Guard(current.Retention, now); err != nil {
			return nil, forbidden(err)
		}
		return nil, fmt.Errorf("delete %s: no row removed", id)
	}

	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.Warn("delete version blob",
				slog.String("document_id", id),
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}

	return &DeleteResult{ID: doc.ID, Mode: string(model.DisposalHard), DeletedAt: now}, nil
}

func (s *documentService) Get(ctx context.Context, id string) (*model.Document, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(p, doc, acl.PermRead); err != nil {
		return nil, err
	}

	if _, err := s.recorder.Record(ctx, audit.Event{
		DocumentID: doc.ID,
		TenantID:   doc.TenantID,
		Action:     model.ActionRead,
	}); err != nil {
		return nil, err
	}
	return doc, nil
}

// List returns paginated documents without exposing repository types.
func (s *documentService) List(ctx context.Context, f ListFilter) (*DocumentListResult, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	page, limit, err := normalizePage(f.Page, f.Limit)
	if err != nil {
		return nil, err
	}

	res, err := s.docs.List(ctx,
		repository.DocumentFilter{TenantID: p.TenantID, Domain: f.Domain},
		repository.PageQuery{Limit: limit, Offset: (page - 1) * limit},
	)
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Meta: meta(res.Total, page, limit)}, nil
}

func (s *documentService) AuditTrail(ctx context.Context, id string, page, limit int) (*AuditTrailResult, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	if !p.HasRole(auth.RoleAdmin, auth.RoleSystem) {
		return nil, fmt.Errorf("%w: audit trail requires ADMIN", ErrForbidden)
	}
	page, limit, err = normalizePage(page, limit)
	if err != nil {
		return nil, err
	}

	// Entries outlive hard-deleted documents, so the tenant filter is the only scope.
	res, err := s.recorder.Trail(ctx, p.TenantID, id, repository.PageQuery{Limit: limit, Offset: (page - 1) * limit})
	if err != nil {
		return nil, err
	}
	return &AuditTrailResult{Items: res.Items, Meta: meta(res.Total, page, limit)}, nil
}

func (s *documentService) load(ctx context.Context, id string) (*model.Document, error) {
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return doc, nil
}

// upload streams content to the blob store and fills the storage fields of v.
func (s *documentService) upload(ctx context.Context, v *model.Version, content io.Reader, fileName, mimeType string, size int64) error {
	if size <= 0 {
		size = -1
	}
	key := storage.VersionKey(v.DocumentID, v.ID, fileName)
	hr := storage.NewHashingReader(content)
	if _, err := s.store.Put(ctx, key, hr, storage.PutObjectOptions{
		Size:        size,
		ContentType: mimeType,
		Metadata: map[string]string{
			"original-filename": fileName,
		},
	}); err != nil {
		return fmt.Errorf("upload to storage: %w", err)
	}
	v.StorageKey = key
	v.ContentHash = hr.Sum()
	v.MimeType = mimeType
	v.Size = hr.N()
	return nil
}

// rollbackBlob removes an uploaded blob after a failed DB write and returns cause.
func (s *documentService) rollbackBlob(ctx context.Context, key string, cause error) error {
	if key == "" {
		return cause
	}
	if delErr := s.store.Delete(ctx, key); delErr != nil {
		return fmt.Errorf("%w; rollback delete failed: %v", cause, delErr)
	}
	return cause
}

func (s *documentService) blobKeys(ctx context.Context, id string) []string {
	versions, err := s.versions.ListByDocument(ctx, id)
	if err != nil {
		s.logger.Warn("list versions before delete", slog.String("document_id", id), slog.String("error", err.Error()))
		return nil
	}
	keys := make([]string, 0, len(versions))
	for _, v := range versions {
		if v.StorageKey != "" {
			keys = append(keys, v.StorageKey)
		}
	}
	return keys
}

func principal(ctx context.Context) (auth.Principal, error) {
	p, err := auth.MustPrincipal(ctx)
	if err != nil {
		return auth.Principal{}, forbidden(err)
	}
	if p.TenantID == "" && p.Role != auth.RoleSystem {
		return auth.Principal{}, ErrNoTenant
	}
	return p, nil
}

func authorize(p auth.Principal, doc *model.Document, perm acl.Permission) error {
	d := acl.Evaluate(doc.ACL, doc.TenantID, p, perm)
	if d.Allowed {
		return nil
	}
	if p.TenantID != doc.TenantID {
		return ErrTenantMismatch
	}
	return fmt.Errorf("%w: %s access denied (%s)", ErrForbidden, perm, d.Reason)
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidID
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// normalizePage applies defaults and bounds. Pages past maxPage are rejected
// so (page-1)*limit cannot overflow the offset.
func normalizePage(page, limit int) (int, int, error) {
	if page < 1 {
		page = defaultPage
	}
	if page > maxPage {
		return 0, 0, ErrPageOutOfRange
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit, nil
}

func meta(total, page, limit int) ListMeta {
	return ListMeta{Total: total, Page: page, LastPage: (total + limit - 1) / limit}
}
