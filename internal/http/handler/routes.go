package handler

import (
	"database/sql"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"

	"doclife/internal/acl"
	"doclife/internal/http/middleware"
	"doclife/internal/logging"
	"doclife/internal/service"
)

// Deps are the collaborators RegisterRoutes wires into handlers.
type Deps struct {
	DB        *sql.DB
	Documents service.DocumentService
	Artifacts ArtifactOpener
	Tokens    middleware.TokenParser
	Gatherer  prometheus.Gatherer
	Logger    *slog.Logger // server-side failures; nil discards them
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	logger := d.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	app.Use(withLogger(logger))

	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())
	if d.Gatherer != nil {
		app.Get("/metrics", Metrics(d.Gatherer))
	}

	// Signed links authenticate themselves; registered before /documents/:id.
	app.Get("/documents/download-file/:fileName", DownloadFile(d.Artifacts))

	authn := middleware.Authenticate(d.Tokens)
	svc := d.Documents

	app.Post("/documents", authn, middleware.Require(acl.OpCreate), CreateDocument(svc))
	app.Get("/documents", authn, middleware.Require(acl.OpList), ListDocuments(svc))
	app.Get("/documents/:id", authn, middleware.Require(acl.OpRead), GetDocument(svc))
	app.Delete("/documents/:id", authn, middleware.Require(acl.OpDelete), DeleteDocument(svc))
	app.Post("/documents/:id/versions", authn, middleware.Require(acl.OpCreateVersion), CreateVersion(svc))
	app.Get("/documents/:id/versions", authn, middleware.Require(acl.OpListVersions), ListVersions(svc))
	app.Get("/documents/:id/content", authn, middleware.Require(acl.OpContent), DocumentContent(svc))
	app.Patch("/documents/:id/acl", authn, middleware.Require(acl.OpUpdateACL), UpdateACL(svc))
	app.Patch("/documents/:id/retention", authn, middleware.Require(acl.OpUpdateRetention), UpdateRetention(svc))
	app.Get("/documents/:id/audit", authn, middleware.Require(acl.OpAuditTrail), AuditTrail(svc))
}
