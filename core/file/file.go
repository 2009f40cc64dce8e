package file

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/langhour/tracker/core"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("file")
	ErrEmpty    = errors.New("file is empty")
	ErrNoName   = errors.New("file name is required")
)

// File is a document uploaded by a user (certificates, score sheets...).
// Content is only loaded by Download.
type File struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Content     []byte    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// TooLargeError is returned when an upload exceeds the configured limit.
type TooLargeError struct {
	Size, Max int64
}

func (err TooLargeError) Error() string {
	return fmt.Sprintf("file too large: %d bytes (max %d)", err.Size, err.Max)
}

type (
	Repository interface {
		CreateFile(ctx context.Context, f File) (File, error)
		GetFile(ctx context.Context, id string, withContent bool) (File, error)
		// QueryFiles lists userID's files without their content, newest first.
		QueryFiles(ctx context.Context, userID string) ([]File, error)
		DeleteFile(ctx context.Context, id string) error
	}

	Service interface {
		Upload(ctx context.Context, userID, name string, content []byte) (File, error)
		List(ctx context.Context, userID string) ([]File, error)
		Get(ctx context.Context, id string) (File, error)
		Download(ctx context.Context, id string) (File, error)
		Delete(ctx context.Context, id string) error
	}

	service struct {
		repo    Repository
		maxSize int64
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, conf *core.Config) Service {
	return &service{repo: repo, maxSize: conf.MaxUploadSize}
}

func (svc *service) Upload(ctx context.Context, userID, name string, content []byte) (File, error) {
	name = filepath.Base(core.CleanString(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return File{}, core.NewValidationError(ErrNoName, core.FieldError{Field: "file", Error: ErrNoName.Error()})
	}
	size := int64(len(content))
	if size == 0 {
		return File{}, core.NewValidationError(ErrEmpty, core.FieldError{Field: "file", Error: ErrEmpty.Error()})
	}
	if svc.maxSize > 0 && size > svc.maxSize {
		err := TooLargeError{Size: size, Max: svc.maxSize}
		return File{}, core.NewValidationError(err, core.FieldError{Field: "file", Error: err.Error()})
	}
	return svc.repo.CreateFile(ctx, File{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        name,
		ContentType: http.DetectContentType(content),
		Size:        size,
		Content:     content,
		CreatedAt:   time.Now().UTC(),
	})
}

func (svc *service) List(ctx context.Context, userID string) ([]File, error) {
	return svc.repo.QueryFiles(ctx, userID)
}

func (svc *service) Get(ctx context.Context, id string) (File, error) {
	return svc.repo.GetFile(ctx, id, false)
}

func (svc *service) Download(ctx context.Context, id string) (File, error) {
	return svc.repo.GetFile(ctx, id, true)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteFile(ctx, id)
}
