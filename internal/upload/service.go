package upload

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/medconnect/backend/internal/auth"
	"github.com/medconnect/backend/internal/notification"
	"github.com/medconnect/backend/internal/pagination"
)

// AccessChecker decides whether a principal may read or write a patient's record.
type AccessChecker interface {
	AuthorizeRead(ctx context.Context, principal *auth.Principal, patientID string) error
	AuthorizeWrite(ctx context.Context, principal *auth.Principal, patientID string) error
}

// MetricsRecorder records accepted uploads.
type MetricsRecorder interface {
	RecordUpload(ctx context.Context, contentType string, size int64)
}

const purgeBatchSize = 100

type Service struct {
	repo     RepositoryInterface
	store    BlobStore
	access   AccessChecker
	notifier notification.Notifier
	metrics  MetricsRecorder
	maxBytes int64
	now      func() time.Time
}

func NewService(repo RepositoryInterface, store BlobStore, access AccessChecker, notifier notification.Notifier,
	metrics MetricsRecorder, maxBytes int64) *Service {
	return &Service{
		repo:     repo,
		store:    store,
		access:   access,
		notifier: notifier,
		metrics:  metrics,
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

func cleanFileName(name string) (string, error) {
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "." || name == "/" || name == "" || utf8.RuneCountInString(name) > maxFileNameLength {
		return "", ErrInvalidFileName
	}
	return name, nil
}

// detectContentType sniffs the content and falls back to the declared
// type only for plain text, which sniffing cannot tell apart reliably.
func detectContentType(data []byte, declared string) string {
	if len(data) >= 132 && string(data[128:132]) == "DICM" {
		return TypeDICOM
	}
	sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	if sniffed == "application/octet-stream" {
		if d, _, err := mime.ParseMediaType(declared); err == nil && d == TypeDICOM {
			return TypeDICOM
		}
	}
	return sniffed
}

// Upload stores a document. Patients upload into their own record; doctors
// need write access to attach a file to a patient, or upload a personal file.
func (s *Service) Upload(ctx context.Context, principal *auth.Principal, in UploadInput) (*File, error) {
	name, err := cleanFileName(in.FileName)
	if err != nil {
		return nil, err
	}
	if in.Content == nil {
		return nil, ErrMissingFile
	}

	var patientID *string
	target := strings.TrimSpace(in.PatientID)
	switch {
	case principal.IsPatient():
		if target != "" && target != principal.UserID {
			return nil, ErrNoFileAccess
		}
		patientID = &principal.UserID
	case principal.IsDoctor():
		if target != "" {
			if err := s.access.AuthorizeWrite(ctx, principal, target); err != nil {
				return nil, err
			}
			patientID = &target
		}
	default:
		return nil, ErrUploadForbidden
	}

	data, err := io.ReadAll(io.LimitReader(in.Content, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, ErrFileTooLarge
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	contentType := detectContentType(data, in.DeclaredType)
	if !allowedContentTypes[contentType] {
		return nil, ErrInvalidContentType
	}

	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	f := &File{
		OwnerID:     principal.UserID,
		PatientID:   patientID,
		FileName:    name,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
		SHA256:      digest,
		StorageKey:  storageKey(uuid.NewString()),
	}

	if err := s.store.Put(ctx, f.StorageKey, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, f); err != nil {
		s.dropBlob(ctx, f.StorageKey)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordUpload(ctx, contentType, f.SizeBytes)
	}
	if patientID != nil && *patientID != principal.UserID && s.notifier != nil {
		if _, err := s.notifier.Notify(ctx, notification.Input{
			UserID:      *patientID,
			Type:        notification.TypeDossierUpdated,
			Title:       "New document in your record",
			Body:        name,
			ReferenceID: f.ID,
		}); err != nil {
			log.Warn().Err(err).Str("file_id", f.ID).Msg("failed to notify patient of upload")
		}
	}
	return f, nil
}

// dropBlob removes content whose row is gone. Every row owns its own key.
func (s *Service) dropBlob(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		log.Warn().Err(err).Str("storage_key", key).Msg("failed to remove orphan blob")
	}
}

func (s *Service) authorizeView(ctx context.Context, principal *auth.Principal, f *File) error {
	if f.OwnerID == principal.UserID {
		return nil
	}
	if f.PatientID == nil {
		return ErrNoFileAccess
	}
	if err := s.access.AuthorizeRead(ctx, principal, *f.PatientID); err != nil {
		return ErrNoFileAccess
	}
	return nil
}

// Get returns file metadata visible to the principal.
func (s *Service) Get(ctx context.Context, principal *auth.Principal, id string) (*File, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(ctx, principal, f); err != nil {
		return nil, err
	}
	return f, nil
}

// Open returns the metadata and content of a file. The caller closes the reader.
func (s *Service) Open(ctx context.Context, principal *auth.Principal, id string) (*File, io.ReadCloser, error) {
	f, err := s.Get(ctx, principal, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Open(ctx, f.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return f, rc, nil
}

// Delete soft-deletes a file. Only the uploader may delete it.
func (s *Service) Delete(ctx context.Context, principal *auth.Principal, id string) error {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if f.OwnerID != principal.UserID {
		if s.authorizeView(ctx, principal, f) != nil {
			return ErrFileNotFound
		}
		return ErrNotOwner
	}
	return s.repo.SoftDelete(ctx, id)
}

func (s *Service) ListForPatient(ctx context.Context, principal *auth.Principal, patientID string, params pagination.Params) (*pagination.Page[File], error) {
	params.Validate()
	if err := s.access.AuthorizeRead(ctx, principal, patientID); err != nil {
		return nil, err
	}
	files, total, err := s.repo.ListByPatient(ctx, patientID, params.Limit, params.CalculateOffset())
	if err != nil {
		return nil, err
	}
	if files == nil {
		files = []File{}
	}
	page := pagination.NewPage(files, params, total)
	return &page, nil
}

// IsOwner reports whether userID uploaded the live file fileID.
func (s *Service) IsOwner(ctx context.Context, fileID, userID string) (bool, error) {
	f, err := s.repo.GetByID(ctx, fileID)
	if errors.Is(err, ErrFileNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return f.OwnerID == userID, nil
}

// PurgeDeleted removes files soft-deleted longer than retention together with
// their blobs. It returns the number purged.
func (s *Service) PurgeDeleted(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := s.now().Add(-retention)
	purged := 0
	for {
		files, err := s.repo.ListPurgeable(ctx, cutoff, purgeBatchSize)
		if err != nil {
			return purged, err
		}
		if len(files) == 0 {
			return purged, nil
		}

		ids := make([]string, 0, len(files))
		for _, f := range files {
			ids = append(ids, f.ID)
		}
		if err := s.repo.Purge(ctx, ids); err != nil {
			return purged, err
		}
		purged += len(ids)

		for _, f := range files {
			s.dropBlob(ctx, f.StorageKey)
		}
		if len(files) < purgeBatchSize {
			return purged, nil
		}
	}
}
