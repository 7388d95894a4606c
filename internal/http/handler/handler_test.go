package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docstore/internal/filetype"
	"docstore/internal/model"
	"docstore/internal/service"
	svcMocks "docstore/internal/service/mocks"
	"docstore/internal/storage"
)

const (
	docID   = "5f0c1f3a-9d2e-4a7b-8c6d-1e2f3a4b5c6d"
	docUUID = "6a1d2e3f-0b1c-4d5e-8f9a-2b3c4d5e6f70"
)

func newTestApp(svc service.DocumentService) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	RegisterRoutes(app, nil, svc)
	return app
}

func decodeJSON[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&v))
	return v
}

func decodeError(t *testing.T, res *http.Response) errorPayload {
	return decodeJSON[errorPayload](t, res)
}

// multipartBody builds a multipart form with the given fields and, when
// fileName is non-empty, a "file" part.
func multipartBody(t *testing.T, fields map[string][]string, fileName string, fileContent []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, vs := range fields {
		for _, v := range vs {
			require.NoError(t, w.WriteField(k, v))
		}
	}
	if fileName != "" {
		fw, err := w.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write(fileContent)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestListDocuments(t *testing.T) {
	t.Run("returns masked representations", func(t *testing.T) {
		svc := new(svcMocks.MockDocumentService)
		svc.On("List", mock.Anything, 10, 0).Return(&service.DocumentListResult{
			Items: []model.Document{
				{ID: docID, FileName: "photo.png", StoragePath: "uploads/x", ThumbnailPath: "uploads/t"},
				{ID: docUUID, FileName: "report.pdf", StoragePath: "uploads/y"},
			},
			Total: 2,
		}, nil)

		app := newTestApp(svc)
		res, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents", nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, res.StatusCode)

		body := decodeJSON[DocumentListResponse](t, res)
		assert.Equal(t, 2, body.Total)
		require.Len(t, body.Items, 2)

		require.NotNil(t, body.Items[0].File)
		assert.Equal(t, "/documents/file/"+docID, *body.Items[0].File)
		require.NotNil(t, body.Items[0].Thumbnail)
		assert.Equal(t, "/documents/thumbnail/"+docID, *body.Items[0].Thumbnail)

		// No thumbnail blob means a null thumbnail, not an empty string.
		assert.NotNil(t, body.Items[1].File)
		assert.Nil(t, body.Items[1].Thumbnail)
	})

	t.Run("forwards pagination parameters", func(t *testing.T) {
		svc := new(svcMocks.MockDocumentService)
		svc.On("List", mock.Anything, 5, 20).Return(&service.DocumentListResult{Items: []model.Document{}, Total: 0}, nil)

		app := newTestApp(svc)
		res, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents?limit=5&offset=20", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		svc.AssertExpectations(t)
	})

	t.Run("rejects non-numeric limit", func(t *testing.T) {
		svc := new(svcMocks.MockDocumentService)
		app := newTestApp(svc)

		res, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents?limit=ten", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		assert.Equal(t, "INVALID_LIMIT", decodeError(t, res).Error.Code)
		svc.AssertNotCalled(t, "List")
	})
}

func TestUploadDocument(t *testing.T) {
	t.Run("creates a document from a multipart form", func(t *testing.T) {
		svc := new(svcMocks.MockDocumentService)
		svc.On("Upload", mock.Anything, mock.Anything, mock.MatchedBy(func(in service.UploadInput) bool {
			return in.FileName == "photo.png" &&
				in.FileDescription == "holiday" &&
				in.OrganizationUUID == "org-1" &&
				len(in.WorkflowLevel1UUIDs) == 2
		})).Return(&model.Document{
			ID:            docID,
			FileName:      "photo.png",
			FileType:      "png",
			StoragePath:   "uploads/x",
			ThumbnailPath: "uploads/t",
		}, nil)

		body, contentType := multipartBody(t, map[string][]string{
			"file_name":            {"photo.png"},
			"file_description":     {"holiday"},
			"organization_uuid":    {"org-1"},
			"workflowlevel1_uuids": {"wf-1", "wf-2"},
		}, "photo.png", []byte("fake-png-bytes"))

		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", contentType)

		app := newTestApp(svc)
		res, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, res.StatusCode)

		got := decodeJSON[DocumentResponse](t, res)
		assert.Equal(t, docID, got.ID)
		require.NotNil(t, got.File)
		assert.Equal(t, "/documents/file/"+docID, *got.File)
		svc.AssertExpectations(t)
	})

	t.Run("file_name falls back to the uploaded filename", func(t *testing.T) {
		svc := new(svcMocks.MockDocumentService)
		svc.On("Upload", mock.Anything, mock.Anything, mock.MatchedBy(func(in service.UploadInput) bool {
			return in.FileName == "from-part.pdf"
		})).Return(&model.Document{ID: docID, FileName: "from-part.pdf"}, nil)

		body, contentType := multipartBody(t, nil, "from-part.pdf", []byte("%PDF"))
		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", contentType)

		res, err := newTestApp(svc).Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, res.StatusCode)
		svc.AssertExpectations(t)
	})

	t.Run("missing file_name", func(t *testing.T) {
		svc := new(svcMocks.MockDocumentService)
		body, contentType := multipartBody(t, map[string][]string{"file_description": {"no name"}}, "", nil)
		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", contentType)

		res, err := newTestApp(svc).Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		assert.Equal(t, "FILE_NAME_REQUIRED", decodeError(t, res).Error.Code)
		svc.AssertNotCalled(t, "Upload")
	})

	t.Run("malformed create_date", func(t *testing.T) {
		svc := new(svcMocks.MockDocumentService)
		body, contentType := multipartBody(t, map[string][]string{
			"file_name":   {"a.txt"},
			"create_date": {"03/07/2026"},
		}, "", nil)
		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", contentType)

		res, err := newTestApp(svc).Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		assert.Equal(t, "INVALID_CREATE_DATE", decodeError(t, res).Error.Code)
	})

	t.Run("disallowed extension maps to 400 with the allow list", func(t *testing.T) {
		svc := new(svcMocks.MockDocumentService)
		svc.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(nil, &filetype.InvalidTypeError{Ext: "exe"})

		body, contentType := multipartBody(t, map[string][]string{"file_name": {"malware.exe"}}, "", nil)
		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", contentType)

		res, err := newTestApp(svc).Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)

		payload := decodeError(t, res)
		assert.Equal(t, "INVALID_FILE_TYPE", payload.Error.Code)
		assert.Contains(t, payload.Error.Message, "exe")
		assert.Contains(t, payload.Error.Message, "jpg")
	})

	t.Run("broken image maps to 422", func(t *testing.T) {
		svc := new(svcMocks.MockDocumentService)
		svc.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(nil, service.ErrImageProcessing)

		body, contentType := multipartBody(t, map[string][]string{"file_name": {"broken.png"}}, "broken.png", []byte("junk"))
		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", contentType)

		res, err := newTestApp(svc).Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
		assert.Equal(t, "IMAGE_PROCESSING_FAILED", decodeError(t, res).Error.Code)
	})
}

func TestGetDocument(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := new(svcMocks.MockDocumentService)
		svc.On("Get", mock.Anything, docID).Return(&model.Document{
			ID:          docID,
			FileName:    "report.pdf",
			StoragePath: "uploads/x",
		}, nil)

		res, err := newTestApp(svc).Test(httptest.NewRequest(http.MethodGet, "/documents/"+docID, nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, res.StatusCode)

		got := decodeJSON[DocumentResponse](t, res)
		require.NotNil(t, got.File)
		assert.Equal(t, "/documents/"+docID+"/file/"+docID, *got.File)
		assert.Nil(t, got.Thumbnail)
	})

	t.Run("malformed id short-circuits", func(t *testing.T) {
		svc := new(svcMocks.MockDocumentService)
		res, err := newTestApp(svc).Test(httptest.NewRequest(http.MethodGet, "/documents/not-a-uuid", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		assert.Equal(t, "INVALID_ID", decodeError(t, res).Error.Code)
		svc.AssertNotCalled(t, "Get")
	})

	t.Run("unknown id", func(t *testing.T) {
		svc := new(svcMocks.MockDocumentService)
		svc.On("Get", mock.Anything, docUUID).Return(nil, service.ErrNotFound)

		res, err := newTestApp(svc).Test(httptest.NewRequest(http.MethodGet, "/documents/"+docUUID, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, res).Error.Code)
	})

	t.Run("unexpected failure is not leaked", func(t *testing.T) {
		svc := new(svcMocks.MockDocumentService)
		svc.On("Get", mock.Anything, docID).Return(nil, errors.New("pq: connection reset"))

		res, err := newTestApp(svc).Test(httptest.NewRequest(http.MethodGet, "/documents/"+docID, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, res.StatusCode)

		payload := decodeError(t, res)
		assert.Equal(t, "INTERNAL_ERROR", payload.Error.Code)
		assert.NotContains(t, payload.Error.Message, "pq:")
	})
}

func TestUpdateDocument(t *testing.T) {
	svc := new(svcMocks.MockDocumentService)
	svc.On("Update", mock.Anything, docID, mock.Anything, mock.MatchedBy(func(in service.UploadInput) bool {
		return in.FileName == "renamed.pdf"
	})).Return(&model.Document{ID: docID, FileName: "renamed.pdf", StoragePath: "uploads/x"}, nil)

	body, contentType := multipartBody(t, map[string][]string{"file_name": {"renamed.pdf"}}, "", nil)
	req := httptest.NewRequest(http.MethodPut, "/documents/"+docID, body)
	req.Header.Set("Content-Type", contentType)

	res, err := newTestApp(svc).Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	got := decodeJSON[DocumentResponse](t, res)
	assert.Equal(t, "renamed.pdf", got.FileName)
	svc.AssertExpectations(t)
}

func TestDeleteDocument(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		svc := new(svcMocks.MockDocumentService)
		svc.On("Delete", mock.Anything, docID).Return(nil)

		res, err := newTestApp(svc).Test(httptest.NewRequest(http.MethodDelete, "/documents/"+docID, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, res.StatusCode)
	})

	t.Run("unknown id", func(t *testing.T) {
		svc := new(svcMocks.MockDocumentService)
		svc.On("Delete", mock.Anything, docID).Return(service.ErrNotFound)

		res, err := newTestApp(svc).Test(httptest.NewRequest(http.MethodDelete, "/documents/"+docID, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})
}

func TestPresignDownload(t *testing.T) {
	t.Run("returns the signed url and its lifetime", func(t *testing.T) {
		svc := new(svcMocks.MockDocumentService)
		svc.On("PresignFile", mock.Anything, docID).Return("https://minio.internal/signed", 15*time.Minute, nil)

		res, err := newTestApp(svc).Test(httptest.NewRequest(http.MethodGet, "/documents/"+docID+"/presign", nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, res.StatusCode)

		body := decodeJSON[map[string]any](t, res)
		assert.Equal(t, "https://minio.internal/signed", body["url"])
		assert.Equal(t, float64(900), body["expires_in_seconds"])
	})

	t.Run("no stored blob", func(t *testing.T) {
		svc := new(svcMocks.MockDocumentService)
		svc.On("PresignFile", mock.Anything, docID).Return("", time.Duration(0), service.ErrNotFound)

		res, err := newTestApp(svc).Test(httptest.NewRequest(http.MethodGet, "/documents/"+docID+"/presign", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})
}

func TestDownloadFile(t *testing.T) {
	t.Run("streams the blob with its stored content type", func(t *testing.T) {
		svc := new(svcMocks.MockDocumentService)
		svc.On("OpenFile", mock.Anything, docID).Return(
			io.NopCloser(strings.NewReader("file-bytes")),
			storage.ObjectInfo{Size: 10, ContentType: "application/pdf"},
			nil)

		res, err := newTestApp(svc).Test(httptest.NewRequest(http.MethodGet, "/file/"+docID, nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, "application/pdf", res.Header.Get("Content-Type"))

		body, err := io.ReadAll(res.Body)
		require.NoError(t, err)
		assert.Equal(t, "file-bytes", string(body))
	})

	t.Run("no stored blob", func(t *testing.T) {
		svc := new(svcMocks.MockDocumentService)
		svc.On("OpenFile", mock.Anything, docID).Return(nil, storage.ObjectInfo{}, service.ErrNotFound)

		res, err := newTestApp(svc).Test(httptest.NewRequest(http.MethodGet, "/file/"+docID, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})

	t.Run("malformed id", func(t *testing.T) {
		svc := new(svcMocks.MockDocumentService)
		res, err := newTestApp(svc).Test(httptest.NewRequest(http.MethodGet, "/file/123", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		svc.AssertNotCalled(t, "OpenFile")
	})
}

func TestDownloadThumbnail(t *testing.T) {
	svc := new(svcMocks.MockDocumentService)
	svc.On("OpenThumbnail", mock.Anything, docID).Return(
		io.NopCloser(strings.NewReader("thumb-bytes")),
		storage.ObjectInfo{Size: 11, ContentType: "image/png"},
		nil)

	res, err := newTestApp(svc).Test(httptest.NewRequest(http.MethodGet, "/thumbnail/"+docID, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "image/png", res.Header.Get("Content-Type"))
}

func TestHealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		dbMock.ExpectPing()

		app := fiber.New()
		app.Get("/health", HealthCheck(db))

		res, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode)
	})

	t.Run("database unreachable", func(t *testing.T) {
		db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		dbMock.ExpectPing().WillReturnError(errors.New("down"))

		app := fiber.New()
		app.Get("/health", HealthCheck(db))

		res, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
