package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"docstore/internal/model"
	"docstore/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of
// repository.DocumentRepository. It uses database/sql with parameterized
// queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `id, uuid, file_name, file_type, file_description,
		storage_path, thumbnail_path, size, content_type,
		create_date, upload_date,
		organization_uuid, user_uuid, contact_uuid,
		workflowlevel1_uuids, workflowlevel2_uuids`

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING ` + documentColumns

	wf1, err := marshalUUIDList(doc.WorkflowLevel1UUIDs)
	if err != nil {
		return nil, err
	}
	wf2, err := marshalUUIDList(doc.WorkflowLevel2UUIDs)
	if err != nil {
		return nil, err
	}

	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.UUID,
		doc.FileName,
		doc.FileType,
		nullString(doc.FileDescription),
		nullString(doc.StoragePath),
		nullString(doc.ThumbnailPath),
		doc.Size,
		nullString(doc.ContentType),
		doc.CreateDate,
		doc.UploadDate,
		nullString(doc.OrganizationUUID),
		nullString(doc.UserUUID),
		nullString(doc.ContactUUID),
		wf1,
		wf2,
	)
	return scanDocument(row)
}

// Update rewrites the mutable columns of an existing row. The id, uuid and
// upload_date columns are deliberately excluded from the SET list.
func (r *DocumentPostgres) Update(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		UPDATE documents SET
			file_name = $2, file_type = $3, file_description = $4,
			storage_path = $5, thumbnail_path = $6, size = $7, content_type = $8,
			create_date = $9,
			organization_uuid = $10, user_uuid = $11, contact_uuid = $12,
			workflowlevel1_uuids = $13, workflowlevel2_uuids = $14
		WHERE id = $1
		RETURNING ` + documentColumns

	wf1, err := marshalUUIDList(doc.WorkflowLevel1UUIDs)
	if err != nil {
		return nil, err
	}
	wf2, err := marshalUUIDList(doc.WorkflowLevel2UUIDs)
	if err != nil {
		return nil, err
	}

	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.FileName,
		doc.FileType,
		nullString(doc.FileDescription),
		nullString(doc.StoragePath),
		nullString(doc.ThumbnailPath),
		doc.Size,
		nullString(doc.ContentType),
		doc.CreateDate,
		nullString(doc.OrganizationUUID),
		nullString(doc.UserUUID),
		nullString(doc.ContactUUID),
		wf1,
		wf2,
	)
	return scanDocument(row)
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	const q = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE id = $1
	`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// List returns documents using LIMIT/OFFSET pagination and a total count.
func (r *DocumentPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	const qCount = `SELECT COUNT(*) FROM documents`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT ` + documentColumns + `
		FROM documents
		ORDER BY upload_date DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Document]{
		Items: items,
		Total: total,
	}, nil
}

// Delete removes a document by ID. It does not return an error if the row
// does not exist.
func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM documents WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	_, _ = res.RowsAffected()
	return nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var (
		d                               model.Document
		description, storage, thumb     sql.NullString
		contentType, org, user, contact sql.NullString
		createDate                      sql.NullTime
		wf1, wf2                        []byte
	)
	if err := row.Scan(
		&d.ID,
		&d.UUID,
		&d.FileName,
		&d.FileType,
		&description,
		&storage,
		&thumb,
		&d.Size,
		&contentType,
		&createDate,
		&d.UploadDate,
		&org,
		&user,
		&contact,
		&wf1,
		&wf2,
	); err != nil {
		return nil, err
	}
	d.FileDescription = description.String
	d.StoragePath = storage.String
	d.ThumbnailPath = thumb.String
	d.ContentType = contentType.String
	if createDate.Valid {
		t := createDate.Time
		d.CreateDate = &t
	}
	d.OrganizationUUID = org.String
	d.UserUUID = user.String
	d.ContactUUID = contact.String

	var err error
	if d.WorkflowLevel1UUIDs, err = unmarshalUUIDList(wf1); err != nil {
		return nil, err
	}
	if d.WorkflowLevel2UUIDs, err = unmarshalUUIDList(wf2); err != nil {
		return nil, err
	}
	return &d, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// UUID lists are stored as JSONB: database/sql has no native scanning for
// Postgres text arrays, and JSONB round-trips order and duplicates exactly
// as given.
func marshalUUIDList(ids []string) ([]byte, error) {
	if ids == nil {
		return nil, nil
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("marshal uuid list: %w", err)
	}
	return b, nil
}

func unmarshalUUIDList(b []byte) ([]string, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return nil, fmt.Errorf("unmarshal uuid list: %w", err)
	}
	return ids, nil
}
