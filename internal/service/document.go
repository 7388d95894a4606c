package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"

	"docstore/internal/filetype"
	"docstore/internal/imaging"
	"docstore/internal/model"
	"docstore/internal/repository"
	"docstore/internal/storage"
)

var (
	ErrIDRequired = errors.New("id is required")
	ErrNotFound   = errors.New("document not found")

	// ErrImageProcessing marks unexpected failures while decoding, rotating,
	// resizing or re-encoding an image-typed upload. Unlike a missing
	// orientation tag (which is swallowed inside the imaging package), these
	// abort the whole save.
	ErrImageProcessing = errors.New("image processing failed")
)

// UploadInput carries the client-supplied metadata of a save request.
// FileType is intentionally absent: it is always derived from FileName.
type UploadInput struct {
	FileName        string
	FileDescription string
	ContentType     string

	CreateDate *time.Time

	OrganizationUUID string
	UserUUID         string
	ContactUUID      string

	WorkflowLevel1UUIDs []string
	WorkflowLevel2UUIDs []string
}

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// DocumentService defines the use cases for handling documents.
type DocumentService interface {
	// Upload runs the full ingestion pipeline: classify the filename,
	// orientation-correct and thumbnail image types, write both blobs to
	// object storage and persist the record. Storage writes are rolled back
	// if the database insert fails. r may be nil for a metadata-only record.
	Upload(ctx context.Context, r io.Reader, in UploadInput) (*model.Document, error)

	// Update rewrites descriptive/ownership fields and, when r is non-nil,
	// re-runs the ingestion pipeline on the new file bytes, replacing both
	// blobs. Replaced blobs are deleted best-effort after the row is saved.
	Update(ctx context.Context, id string, r io.Reader, in UploadInput) (*model.Document, error)

	// List returns documents using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*DocumentListResult, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, id string) (*model.Document, error)

	// Delete removes a document by ID, releasing both blob references.
	Delete(ctx context.Context, id string) error

	// OpenFile streams the stored original.
	OpenFile(ctx context.Context, id string) (io.ReadCloser, storage.ObjectInfo, error)

	// OpenThumbnail streams the stored thumbnail.
	OpenThumbnail(ctx context.Context, id string) (io.ReadCloser, storage.ObjectInfo, error)

	// PresignFile returns a time-limited URL for downloading the stored
	// original directly from object storage, bypassing this API.
	PresignFile(ctx context.Context, id string) (string, time.Duration, error)
}

// presignExpiry bounds how long a direct-download URL stays valid.
const presignExpiry = 15 * time.Minute

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store storage.Storage
	repo  repository.DocumentRepository
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository) DocumentService {
	return &documentService{store: store, repo: repo}
}

// blobs is the outcome of the image stage for one save: the bytes to store
// as the original (orientation-corrected for images) and the optional
// thumbnail.
type blobs struct {
	original    []byte
	thumbnail   []byte
	contentType string
}

// runPipeline classifies the filename and, for image types with file bytes
// present, runs orientation correction and thumbnail derivation. A
// classification failure or an unexpected imaging failure is returned;
// nothing is written anywhere by this function.
func (s *documentService) runPipeline(ctx context.Context, r io.Reader, in UploadInput) (filetype.Type, *blobs, error) {
	ft, err := filetype.Classify(in.FileName)
	if err != nil {
		return "", nil, err
	}

	if r == nil {
		return ft, nil, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return ft, nil, nil
	}

	b := &blobs{original: data, contentType: in.ContentType}
	if b.contentType == "" {
		b.contentType = ft.MIME()
	}

	if ft.IsImage() {
		corrected, thumb, err := imaging.Process(ctx, data, ft)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", ErrImageProcessing, err)
		}
		b.original = corrected
		b.thumbnail = thumb
		// Re-encoded bytes are always in the classified format, whatever the
		// client declared.
		b.contentType = ft.MIME()
	}
	return ft, b, nil
}

// putBlobs writes the original and (if present) thumbnail objects and fills
// the document's storage fields. On a thumbnail write failure the already
// written original is deleted so no orphan remains.
func (s *documentService) putBlobs(ctx context.Context, doc *model.Document, b *blobs) error {
	key := objectKey(doc.UploadDate, "", doc.FileName)
	info, err := s.store.Put(ctx, key, bytes.NewReader(b.original), storage.PutObjectOptions{
		Size:        int64(len(b.original)),
		ContentType: b.contentType,
		Metadata: map[string]string{
			"original-filename": doc.FileName,
		},
	})
	if err != nil {
		return fmt.Errorf("upload to storage: %w", err)
	}
	doc.StoragePath = info.Key
	doc.Size = info.Size
	doc.ContentType = b.contentType

	if b.thumbnail == nil {
		doc.ThumbnailPath = ""
		return nil
	}

	tkey := objectKey(doc.UploadDate, "thumbnails", doc.FileName)
	tinfo, err := s.store.Put(ctx, tkey, bytes.NewReader(b.thumbnail), storage.PutObjectOptions{
		Size:        int64(len(b.thumbnail)),
		ContentType: b.contentType,
	})
	if err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return fmt.Errorf("upload thumbnail: %v; rollback delete failed: %v", err, delErr)
		}
		return fmt.Errorf("upload thumbnail: %w", err)
	}
	doc.ThumbnailPath = tinfo.Key
	return nil
}

// deleteBlobs removes the document's stored objects, ignoring errors.
func (s *documentService) deleteBlobs(ctx context.Context, storagePath, thumbnailPath string) {
	if storagePath != "" {
		_ = s.store.Delete(ctx, storagePath)
	}
	if thumbnailPath != "" {
		_ = s.store.Delete(ctx, thumbnailPath)
	}
}

func (s *documentService) Upload(ctx context.Context, r io.Reader, in UploadInput) (*model.Document, error) {
	ft, b, err := s.runPipeline(ctx, r, in)
	if err != nil {
		return nil, err
	}

	doc := &model.Document{
		ID:                  uuid.New().String(),
		UUID:                uuid.New().String(),
		FileName:            in.FileName,
		FileType:            string(ft),
		FileDescription:     in.FileDescription,
		CreateDate:          in.CreateDate,
		UploadDate:          time.Now().UTC(),
		OrganizationUUID:    in.OrganizationUUID,
		UserUUID:            in.UserUUID,
		ContactUUID:         in.ContactUUID,
		WorkflowLevel1UUIDs: in.WorkflowLevel1UUIDs,
		WorkflowLevel2UUIDs: in.WorkflowLevel2UUIDs,
	}

	if b != nil {
		if err := s.putBlobs(ctx, doc, b); err != nil {
			return nil, err
		}
	}

	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		// Rollback: the record is gone, so its objects must go too.
		if doc.StoragePath != "" {
			if delErr := s.store.Delete(ctx, doc.StoragePath); delErr != nil {
				return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
			}
			if doc.ThumbnailPath != "" {
				_ = s.store.Delete(ctx, doc.ThumbnailPath)
			}
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	return stored, nil
}

func (s *documentService) Update(ctx context.Context, id string, r io.Reader, in UploadInput) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	ft, b, err := s.runPipeline(ctx, r, in)
	if err != nil {
		return nil, err
	}

	doc := *existing
	doc.FileName = in.FileName
	doc.FileType = string(ft)
	doc.FileDescription = in.FileDescription
	doc.CreateDate = in.CreateDate
	doc.OrganizationUUID = in.OrganizationUUID
	doc.UserUUID = in.UserUUID
	doc.ContactUUID = in.ContactUUID
	doc.WorkflowLevel1UUIDs = in.WorkflowLevel1UUIDs
	doc.WorkflowLevel2UUIDs = in.WorkflowLevel2UUIDs

	oldStorage, oldThumbnail := existing.StoragePath, existing.ThumbnailPath
	if b != nil {
		if err := s.putBlobs(ctx, &doc, b); err != nil {
			return nil, err
		}
	}

	stored, err := s.repo.Update(ctx, &doc)
	if err != nil {
		if b != nil {
			s.deleteBlobs(ctx, doc.StoragePath, doc.ThumbnailPath)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}

	// Replaced objects are deleted only after the row is committed; a failed
	// delete leaves orphans rather than a broken record.
	if b != nil {
		s.deleteBlobs(ctx, oldStorage, oldThumbnail)
	}
	return stored, nil
}

// List returns paginated documents without exposing repository types.
func (s *documentService) List(ctx context.Context, limit, offset int) (*DocumentListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

// Get returns a document by ID.
func (s *documentService) Get(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

// Delete removes a document's objects from storage, then deletes its record.
func (s *documentService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	// Delete from storage first; if this fails, keep the DB row so the
	// reference to the object is not lost.
	if doc.StoragePath != "" {
		if err := s.store.Delete(ctx, doc.StoragePath); err != nil {
			return fmt.Errorf("delete storage: %w", err)
		}
	}
	if doc.ThumbnailPath != "" {
		if err := s.store.Delete(ctx, doc.ThumbnailPath); err != nil {
			return fmt.Errorf("delete thumbnail: %w", err)
		}
	}
	return s.repo.Delete(ctx, id)
}

func (s *documentService) OpenFile(ctx context.Context, id string) (io.ReadCloser, storage.ObjectInfo, error) {
	return s.open(ctx, id, func(d *model.Document) string { return d.StoragePath })
}

func (s *documentService) OpenThumbnail(ctx context.Context, id string) (io.ReadCloser, storage.ObjectInfo, error) {
	return s.open(ctx, id, func(d *model.Document) string { return d.ThumbnailPath })
}

func (s *documentService) PresignFile(ctx context.Context, id string) (string, time.Duration, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return "", 0, err
	}
	if doc.StoragePath == "" {
		return "", 0, ErrNotFound
	}
	u, err := s.store.PresignGet(ctx, doc.StoragePath, presignExpiry)
	if err != nil {
		return "", 0, fmt.Errorf("presign object: %w", err)
	}
	return u, presignExpiry, nil
}

func (s *documentService) open(ctx context.Context, id string, keyOf func(*model.Document) string) (io.ReadCloser, storage.ObjectInfo, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, storage.ObjectInfo{}, err
	}
	key := keyOf(doc)
	if key == "" {
		return nil, storage.ObjectInfo{}, ErrNotFound
	}
	rc, info, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, storage.ObjectInfo{}, fmt.Errorf("get from storage: %w", err)
	}
	return rc, info, nil
}

// objectKey builds a date-partitioned storage key with a generated object
// name, so the client filename never leaks into storage paths:
// uploads/<year>-<month>/<day>[/<sub>]/<uuid>.<ext>.
func objectKey(now time.Time, sub string, fileName string) string {
	name := uuid.New().String() + path.Ext(fileName)
	dir := fmt.Sprintf("uploads/%d-%d/%d", now.Year(), int(now.Month()), now.Day())
	if sub != "" {
		dir = dir + "/" + sub
	}
	return dir + "/" + name
}
