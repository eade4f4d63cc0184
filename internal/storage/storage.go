// Package storage defines the remote object-store capability consumed by the
// upload pipeline. Implementations classify provider failures into the
// pkg/faults taxonomy at this boundary; callers never inspect provider
// error strings.
package storage

import (
	"context"
	"io"
)

// RemoteStore is the folder/file surface of the remote provider.
type RemoteStore interface {
	// Exists reports whether a folder exists at path.
	Exists(ctx context.Context, path string) (bool, error)

	// CreateFolder creates the folder at path. Implementations return
	// faults.ErrAlreadyExists when the folder is already present; callers
	// treat that as success.
	CreateFolder(ctx context.Context, path string) error

	// UploadBytes writes size bytes from r to path. With overwrite set, an
	// existing object at path is replaced.
	UploadBytes(ctx context.Context, path string, r io.Reader, size int64, overwrite bool) error

	// DownloadBytes reads the object at path.
	DownloadBytes(ctx context.Context, path string) ([]byte, error)

	// DeleteObject removes the object at path.
	DeleteObject(ctx context.Context, path string) error

	// Ping verifies the store is reachable and the credentials are usable.
	Ping(ctx context.Context) error
}
