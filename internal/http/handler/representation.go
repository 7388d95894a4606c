package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"docstore/internal/model"
)

// DocumentResponse is the client representation of a document. The
// underlying storage keys are replaced by stable indirection URLs served by
// this API, so storage layout can change without breaking clients.
type DocumentResponse struct {
	model.Document
	File      *string `json:"file"`
	Thumbnail *string `json:"thumbnail"`
}

// DocumentListResponse wraps a page of masked representations.
type DocumentListResponse struct {
	Items []DocumentResponse `json:"data"`
	Total int                `json:"total"`
}

// newDocumentResponse builds the masked representation. file and thumbnail
// are null unless the corresponding blob is stored; they never expose the
// physical storage path.
func newDocumentResponse(doc *model.Document, basePath string) DocumentResponse {
	res := DocumentResponse{Document: *doc}
	if doc.StoragePath != "" {
		u := basePath + "/file/" + doc.ID
		res.File = &u
	}
	if doc.ThumbnailPath != "" {
		u := basePath + "/thumbnail/" + doc.ID
		res.Thumbnail = &u
	}
	return res
}

func newDocumentListResponse(items []model.Document, total int, basePath string) DocumentListResponse {
	res := DocumentListResponse{
		Items: make([]DocumentResponse, 0, len(items)),
		Total: total,
	}
	for i := range items {
		res.Items = append(res.Items, newDocumentResponse(&items[i], basePath))
	}
	return res
}

// requestBasePath derives the base for masked URLs from the current request
// path, trimming any trailing slash. Without a request context the base is
// empty, producing root-relative URLs.
func requestBasePath(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	return strings.TrimRight(c.Path(), "/")
}
