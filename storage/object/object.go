// Package object abstracts the file/object store uploaded documents live in.
package object

import (
	"context"
	"io"
)

type UploadInput struct {
	Key         string
	ContentType string
	Body        io.Reader
	Size        int64
}

// Store is any service that can persist and delete binary objects.
// PutObject returns the public URL of the stored object.
type Store interface {
	PutObject(ctx context.Context, in UploadInput) (string, error)
	DeleteObject(ctx context.Context, key string) error
}
