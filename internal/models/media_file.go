package models

import "time"

// MediaFile is a stored file in the media bucket.
type MediaFile struct {
	ID             int64                  `json:"id"`
	FilePath       string                 `json:"file_path"` // S3 object key
	FileName       string                 `json:"file_name"`
	FileType       string                 `json:"file_type"` // broad class: image, document, video
	FileSize       int64                  `json:"file_size"`
	MimeType       string                 `json:"mime_type"`
	UploaderID     *int64                 `json:"uploader_id"`
	OrganizationID *int64                 `json:"organization_id"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	IsPublic       bool                   `json:"is_public"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}
