package handler

import (
	"context"
	"fmt"
	"io"

	"github.com/gofiber/fiber/v2"

	"doclife/internal/storage"
)

// ArtifactOpener validates a signed link and opens the artifact behind it.
type ArtifactOpener interface {
	Open(ctx context.Context, fileName, expires, signature string) (io.ReadCloser, storage.ObjectInfo, error)
}

// DownloadFile streams a rendered artifact. The signed query replaces bearer
// auth, so this route is registered without the Authenticate middleware.
// ?mode=download forces an attachment; the default is inline.
func DownloadFile(opener ArtifactOpener) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fileName := c.Params("fileName")
		rc, info, err := opener.Open(c.UserContext(), fileName, c.Query("expires"), c.Query("sig"))
		if err != nil {
			return writeArtifactError(c, err)
		}

		disposition := "inline"
		if c.Query("mode") == "download" {
			disposition = "attachment"
		}
		ct := info.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}

		c.Set(fiber.HeaderContentType, ct)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("%s; filename=%q", disposition, fileName))
		c.Set(fiber.HeaderCacheControl, "no-store, no-cache, must-revalidate")
		c.Set(fiber.HeaderPragma, "no-cache")
		c.Set(fiber.HeaderExpires, "0")

		size := -1
		if info.Size > 0 {
			size = int(info.Size)
		}
		// fasthttp closes rc once the body is written.
		return c.SendStream(rc, size)
	}
}
