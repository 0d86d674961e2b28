package handler

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"doclife/internal/model"
	"doclife/internal/retention"
	"doclife/internal/service"
)

type createDocumentRequest struct {
	ProcessID string    `json:"process_id" form:"process_id"`
	Domain    string    `json:"domain" form:"domain"`
	Category  string    `json:"category" form:"category"`
	DocType   string    `json:"doc_type" form:"doc_type"`
	ACL       model.ACL `json:"acl" form:"-"`
}

type retentionRequest struct {
	PolicyID string `json:"policy_id"`
	Years    int    `json:"years"`
	Mode     string `json:"mode"`
}

// queryInt parses an optional integer query parameter; ok is false on a malformed value.
func queryInt(c *fiber.Ctx, key string) (n int, ok bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm)
}

// openUpload opens the "file" form field. It returns a nil reader when the field is absent.
func openUpload(c *fiber.Ctx) (io.ReadCloser, *multipart.FileHeader, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, nil, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	return f, fh, nil
}

func contentType(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// CreateDocument accepts JSON metadata or a multipart form with an optional
// "file" part and an "acl" field holding JSON.
func CreateDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createDocumentRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		in := service.CreateDocumentInput{
			ProcessID: req.ProcessID,
			Taxonomy:  model.Taxonomy{Domain: req.Domain, Category: req.Category, DocType: req.DocType},
			ACL:       req.ACL,
		}

		if isMultipart(c) {
			if raw := c.FormValue("acl"); raw != "" {
				if err := json.Unmarshal([]byte(raw), &in.ACL); err != nil {
					return writeError(c, fiber.StatusBadRequest, "INVALID_ACL", "acl must be a JSON object")
				}
			}
			f, fh, err := openUpload(c)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
			}
			if f != nil {
				defer f.Close()
				in.Content = f
				in.FileName = fh.Filename
				in.MimeType = contentType(fh)
				in.Size = fh.Size
			}
		}

		doc, err := svc.Create(c.UserContext(), in)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// ListDocuments lists the caller's tenant documents with page & limit.
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, ok := queryInt(c, "page")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PAGE", "invalid page")
		}
		limit, ok := queryInt(c, "limit")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}

		res, err := svc.List(c.UserContext(), service.ListFilter{
			Domain: c.Query("domain"),
			Page:   page,
			Limit:  limit,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// GetDocument returns a document by ID.
func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		doc, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// CreateVersion uploads a new revision (multipart/form-data, fields: file, comment).
func CreateVersion(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		res, err := svc.CreateVersion(c.UserContext(), c.Params("id"), service.CreateVersionInput{
			Comment:  c.FormValue("comment"),
			Content:  f,
			FileName: fh.Filename,
			MimeType: contentType(fh),
			Size:     fh.Size,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// ListVersions returns the version history.
func ListVersions(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		versions, err := svc.ListVersions(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"data": versions})
	}
}

// DocumentContent issues a signed download link for ?version (default current).
func DocumentContent(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var version *int
		if raw := c.Query("version"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_VERSION", "version must be an integer")
			}
			version = &n
		}

		res, err := svc.DownloadURL(c.UserContext(), c.Params("id"), version)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// UpdateACL merges the lists present in the body into the document ACL.
func UpdateACL(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var patch model.ACLPatch
		if err := json.Unmarshal(c.Body(), &patch); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		doc, err := svc.UpdateACL(c.UserContext(), c.Params("id"), patch)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// UpdateRetention attaches a retention policy.
func UpdateRetention(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req retentionRequest
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		doc, err := svc.UpdateRetention(c.UserContext(), c.Params("id"), retention.Policy{
			PolicyID: req.PolicyID,
			Years:    req.Years,
			Mode:     req.Mode,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// DeleteDocument hard-deletes a document outside retention.
func DeleteDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := svc.Remove(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// AuditTrail lists audit entries for a document.
func AuditTrail(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, ok := queryInt(c, "page")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PAGE", "invalid page")
		}
		limit, ok := queryInt(c, "limit")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}

		res, err := svc.AuditTrail(c.UserContext(), c.Params("id"), page, limit)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}
