package upload

import (
	"io"
	"time"
)

// Content types accepted for medical documents.
const (
	TypePDF   = "application/pdf"
	TypePNG   = "image/png"
	TypeJPEG  = "image/jpeg"
	TypeDICOM = "application/dicom"
	TypeText  = "text/plain"
)

var allowedContentTypes = map[string]bool{
	TypePDF:   true,
	TypePNG:   true,
	TypeJPEG:  true,
	TypeDICOM: true,
	TypeText:  true,
}

const maxFileNameLength = 255

// File is the metadata of an uploaded document. The bytes live in the blob
// store under StorageKey.
type File struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	PatientID   *string    `json:"patientId,omitempty"`
	FileName    string     `json:"fileName"`
	ContentType string     `json:"contentType"`
	SizeBytes   int64      `json:"sizeBytes"`
	SHA256      string     `json:"sha256"`
	StorageKey  string     `json:"-"`
	CreatedAt   time.Time  `json:"createdAt"`
	DeletedAt   *time.Time `json:"-"`
}

// UploadInput is a single multipart file part.
type UploadInput struct {
	FileName     string
	DeclaredType string
	PatientID    string
	Content      io.Reader
}
