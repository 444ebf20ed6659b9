package services

import (
	"context"
	"io"
)

// AudioStorage is the filesystem side of the catalog services. *storage.AudioStore implements it.
type AudioStorage interface {
	EnsureCategoryDir(ctx context.Context, category string) error
	RemoveCategoryDir(ctx context.Context, category string) error
	SaveAudio(ctx context.Context, category, filename string, r io.Reader) (string, error)
	RemoveAudio(ctx context.Context, rel string) (bool, error)
	WriteCategoryManifest(ctx context.Context, names []string) error
	WriteAudioManifest(ctx context.Context, paths []string) error
	AddAudioPath(ctx context.Context, rel string) error
	RemoveAudioPath(ctx context.Context, rel string) error
}
