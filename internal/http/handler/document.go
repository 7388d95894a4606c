package handler

import (
	"context"
	"io"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docstore/internal/service"
	"docstore/internal/storage"
)

// ListDocuments returns paginated documents with masked file/thumbnail URLs.
func ListDocuments(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := docSvc.List(c.UserContext(), limit, offset)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(newDocumentListResponse(res.Items, res.Total, requestBasePath(c)))
	}
}

// UploadDocument creates a document from a multipart form: an optional
// "file" part plus metadata fields.
func UploadDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		in, file, ok := parseDocumentForm(c)
		if !ok {
			return nil
		}

		var r io.Reader
		if file != nil {
			f, err := file.Open()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
			}
			defer f.Close()
			r = f
		}

		doc, err := docSvc.Upload(c.UserContext(), r, *in)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(newDocumentResponse(doc, requestBasePath(c)))
	}
}

// GetDocument returns a single document by ID.
func GetDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := docSvc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(newDocumentResponse(doc, requestBasePath(c)))
	}
}

// UpdateDocument rewrites a document's metadata and optionally replaces its
// file, re-running classification and thumbnailing.
func UpdateDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		in, file, ok := parseDocumentForm(c)
		if !ok {
			return nil
		}

		var r io.Reader
		if file != nil {
			f, err := file.Open()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
			}
			defer f.Close()
			r = f
		}

		doc, err := docSvc.Update(c.UserContext(), id, r, *in)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(newDocumentResponse(doc, requestBasePath(c)))
	}
}

// DeleteDocument removes a document and releases its stored objects.
func DeleteDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := docSvc.Delete(c.UserContext(), id); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// PresignDownload hands out a time-limited direct object-storage URL for
// the stored original, so large downloads can bypass this API.
func PresignDownload(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		u, expiry, err := docSvc.PresignFile(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{
			"url":                u,
			"expires_in_seconds": int(expiry.Seconds()),
		})
	}
}

// DownloadFile streams the stored original behind the masked /file/{id} URL.
func DownloadFile(docSvc service.DocumentService) fiber.Handler {
	return streamBlob(docSvc.OpenFile)
}

// DownloadThumbnail streams the stored thumbnail behind /thumbnail/{id}.
func DownloadThumbnail(docSvc service.DocumentService) fiber.Handler {
	return streamBlob(docSvc.OpenThumbnail)
}

// parseDocumentForm reads the multipart metadata fields and the optional
// "file" part. On a validation failure it writes the error response itself
// and returns ok=false.
func parseDocumentForm(c *fiber.Ctx) (*service.UploadInput, *multipart.FileHeader, bool) {
	file, err := c.FormFile("file")
	if err != nil {
		file = nil // file part is optional; metadata-only records are allowed
	}

	in := &service.UploadInput{
		FileName:         c.FormValue("file_name"),
		FileDescription:  c.FormValue("file_description"),
		OrganizationUUID: c.FormValue("organization_uuid"),
		UserUUID:         c.FormValue("user_uuid"),
		ContactUUID:      c.FormValue("contact_uuid"),
	}
	if in.FileName == "" && file != nil {
		in.FileName = file.Filename
	}
	if in.FileName == "" {
		_ = writeError(c, fiber.StatusBadRequest, "FILE_NAME_REQUIRED", "file_name is required")
		return nil, nil, false
	}
	if file != nil {
		in.ContentType = file.Header.Get("Content-Type")
	}

	if v := c.FormValue("create_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			_ = writeError(c, fiber.StatusBadRequest, "INVALID_CREATE_DATE", "create_date must be RFC 3339")
			return nil, nil, false
		}
		in.CreateDate = &t
	}

	// Workflow ID lists arrive as repeated form values; order and duplicates
	// are preserved as given.
	if form, err := c.MultipartForm(); err == nil && form != nil {
		in.WorkflowLevel1UUIDs = form.Value["workflowlevel1_uuids"]
		in.WorkflowLevel2UUIDs = form.Value["workflowlevel2_uuids"]
	}
	return in, file, true
}

// streamBlob serves one stored object with its native content type. The
// reader is handed to fasthttp, which closes it after the response is sent.
func streamBlob(open func(ctx context.Context, id string) (io.ReadCloser, storage.ObjectInfo, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		rc, info, err := open(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		if info.ContentType != "" {
			c.Set(fiber.HeaderContentType, info.ContentType)
		}
		if info.Size > 0 {
			return c.SendStream(rc, int(info.Size))
		}
		return c.SendStream(rc)
	}
}
