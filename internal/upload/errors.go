package upload

import "github.com/medconnect/backend/internal/apierror"

var (
	ErrFileNotFound       = apierror.NotFound("file not found")
	ErrBlobNotFound       = apierror.NotFound("file content not found")
	ErrMissingFile        = apierror.Validation("multipart field 'file' is required")
	ErrEmptyFile          = apierror.Validation("file is empty")
	ErrFileTooLarge       = apierror.Validation("file exceeds the maximum upload size")
	ErrInvalidContentType = apierror.Validation("file type must be PDF, PNG, JPEG, DICOM or plain text")
	ErrInvalidFileName    = apierror.Validation("file name must be between 1 and 255 characters")
	ErrNotOwner           = apierror.Forbidden("only the uploader can delete this file")
	ErrNoFileAccess       = apierror.Forbidden("no access to this file")
	ErrUploadForbidden    = apierror.Forbidden("only patients and doctors can upload files")
)
