package annotation

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/framenote/framenote/internal/database"
)

// ObjectStorage is the slice of object storage the archive feature needs.
type ObjectStorage interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Handler carries the annotation API endpoints.
type Handler struct {
	db      database.DBTX
	storage ObjectStorage
	baseURL string
}

func NewHandler(db database.DBTX, storage ObjectStorage, baseURL string) *Handler {
	return &Handler{db: db, storage: storage, baseURL: baseURL}
}

// generateShareToken returns a 12-character URL-safe token for archive links.
func generateShareToken() (string, error) {
	b := make([]byte, 9)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
