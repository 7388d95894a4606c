package model

import "time"

// Document represents a stored file plus its descriptive and ownership
// metadata. This is a pure domain model with no database-specific
// dependencies or tags, so it can be used across layers without coupling
// to persistence.
//
// StoragePath and ThumbnailPath are internal object-store keys and are
// never serialized to clients; the HTTP layer replaces them with masked
// /file/{id} and /thumbnail/{id} URLs.
type Document struct {
	ID              string `json:"id"`
	UUID            string `json:"uuid"`
	FileName        string `json:"file_name"`
	FileType        string `json:"file_type"`
	FileDescription string `json:"file_description,omitempty"`

	StoragePath   string `json:"-"`
	ThumbnailPath string `json:"-"`
	Size          int64  `json:"size"`
	ContentType   string `json:"content_type,omitempty"`

	CreateDate *time.Time `json:"create_date,omitempty"`
	UploadDate time.Time  `json:"upload_date"`

	OrganizationUUID string `json:"organization_uuid,omitempty"`
	UserUUID         string `json:"user_uuid,omitempty"`
	ContactUUID      string `json:"contact_uuid,omitempty"`

	WorkflowLevel1UUIDs []string `json:"workflowlevel1_uuids,omitempty"`
	WorkflowLevel2UUIDs []string `json:"workflowlevel2_uuids,omitempty"`
}
