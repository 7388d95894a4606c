// Package repository contains data access layer abstractions.
// Implementations live in subpackages (e.g., postgres) inside this directory.
package repository

import (
	"context"

	"docstore/internal/model"
)

// DocumentRepository defines data access for documents using SQL queries
// only. No business logic here — strictly persistence operations.
type DocumentRepository interface {
	// Create inserts a new document record. The caller provides ID, UUID and
	// UploadDate; they are immutable afterwards.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// Update rewrites the mutable columns of an existing row identified by
	// doc.ID and returns the stored state. ID, UUID and UploadDate are never
	// touched.
	Update(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its ID.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// List returns a paginated list of documents and the total rows count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Document], error)

	// Delete removes a document by ID. It returns nil if the row was deleted
	// or did not exist.
	Delete(ctx context.Context, id string) error
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T
	Total int
}
