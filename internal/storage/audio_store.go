// Package storage manages the audio tree on disk: one folder per category, the audio
// files themselves and the two plain-text manifests kept next to them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"auscultify/internal/config"
	"auscultify/internal/observability"
	contextutils "auscultify/internal/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// AudioStore owns everything under the configured audio root
type AudioStore struct {
	root   string
	logger *observability.Logger

	// one lock per manifest file; readers and writers of the same file never interleave
	categoriesMu sync.Mutex
	audiosMu     sync.Mutex
}

// NewAudioStore creates the root directory if needed
func NewAudioStore(root string, logger *observability.Logger) (*AudioStore, error) {
	if root == "" {
		root = config.DefaultAudioRoot
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to resolve audio root %s", root)
	}
	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return nil, storageError("failed to create audio root", abs, err)
	}
	return &AudioStore{root: abs, logger: logger}, nil
}

// Root returns the absolute audio root
func (s *AudioStore) Root() string {
	return s.root
}

// EnsureCategoryDir creates the folder of a category
func (s *AudioStore) EnsureCategoryDir(ctx context.Context, category string) (err error) {
	_, span := observability.TraceStorageFunction(ctx, "EnsureCategoryDir", observability.AttributeCategoryName(category))
	defer observability.FinishSpan(span, &err)

	dir, err := s.resolve(category)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return storageError("failed to create category folder", category, err)
	}
	return nil
}

// RemoveCategoryDir deletes the folder of a category and everything in it.
// A folder that does not exist is not an error.
func (s *AudioStore) RemoveCategoryDir(ctx context.Context, category string) (err error) {
	_, span := observability.TraceStorageFunction(ctx, "RemoveCategoryDir", observability.AttributeCategoryName(category))
	defer observability.FinishSpan(span, &err)

	dir, err := s.resolve(category)
	if err != nil {
		return err
	}
	if dir == s.root {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "refusing to remove audio root")
	}
	if err := os.RemoveAll(dir); err != nil {
		return storageError("failed to remove category folder", category, err)
	}
	return nil
}

// SaveAudio writes r to {root}/{category}/{filename} and returns the relative path
// stored in the database, always with forward slashes.
func (s *AudioStore) SaveAudio(ctx context.Context, category, filename string, r io.Reader) (rel string, err error) {
	_, span := observability.TraceStorageFunction(ctx, "SaveAudio",
		observability.AttributeCategoryName(category),
		attribute.String("storage.filename", filename),
	)
	defer observability.FinishSpan(span, &err)

	rel = path.Join(category, filename)
	full, err := s.resolve(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), dirPerm); err != nil {
		return "", storageError("failed to create category folder", category, err)
	}

	f, err := os.OpenFile(full, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return "", storageError("failed to create audio file", rel, err)
	}
	n, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(full)
		return "", storageError("failed to write audio file", rel, errors.Join(copyErr, closeErr))
	}

	span.SetAttributes(attribute.Int64("storage.bytes", n))
	return rel, nil
}

// RemoveAudio deletes one audio file. It reports whether a file was removed.
func (s *AudioStore) RemoveAudio(ctx context.Context, rel string) (removed bool, err error) {
	_, span := observability.TraceStorageFunction(ctx, "RemoveAudio", attribute.String("storage.path", rel))
	defer observability.FinishSpan(span, &err)

	full, err := s.resolve(NormalizeRelPath(rel))
	if err != nil {
		return false, err
	}
	if err := os.Remove(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, storageError("failed to remove audio file", rel, err)
	}
	return true, nil
}

// WriteCategoryManifest replaces the category manifest with names, one per line
func (s *AudioStore) WriteCategoryManifest(ctx context.Context, names []string) (err error) {
	_, span := observability.TraceStorageFunction(ctx, "WriteCategoryManifest", attribute.Int("storage.entries", len(names)))
	defer observability.FinishSpan(span, &err)

	s.categoriesMu.Lock()
	defer s.categoriesMu.Unlock()

	return s.writeManifest(config.CategoryManifest, names)
}

// ReadCategoryManifest returns the names listed in the category manifest
func (s *AudioStore) ReadCategoryManifest() ([]string, error) {
	s.categoriesMu.Lock()
	defer s.categoriesMu.Unlock()

	return s.readManifest(config.CategoryManifest)
}

// WriteAudioManifest replaces the audio manifest with paths, deduplicated in order
func (s *AudioStore) WriteAudioManifest(ctx context.Context, paths []string) (err error) {
	_, span := observability.TraceStorageFunction(ctx, "WriteAudioManifest", attribute.Int("storage.entries", len(paths)))
	defer observability.FinishSpan(span, &err)

	s.audiosMu.Lock()
	defer s.audiosMu.Unlock()

	return s.writeManifest(config.AudioManifest, dedupe(paths))
}

// AddAudioPath appends rel to the audio manifest unless it is already listed
func (s *AudioStore) AddAudioPath(ctx context.Context, rel string) (err error) {
	_, span := observability.TraceStorageFunction(ctx, "AddAudioPath", attribute.String("storage.path", rel))
	defer observability.FinishSpan(span, &err)

	s.audiosMu.Lock()
	defer s.audiosMu.Unlock()

	lines, err := s.readManifest(config.AudioManifest)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if line == rel {
			return nil
		}
	}
	return s.writeManifest(config.AudioManifest, append(lines, rel))
}

// RemoveAudioPath drops every line equal to rel from the audio manifest
func (s *AudioStore) RemoveAudioPath(ctx context.Context, rel string) (err error) {
	_, span := observability.TraceStorageFunction(ctx, "RemoveAudioPath", attribute.String("storage.path", rel))
	defer observability.FinishSpan(span, &err)

	s.audiosMu.Lock()
	defer s.audiosMu.Unlock()

	lines, err := s.readManifest(config.AudioManifest)
	if err != nil {
		return err
	}
	kept := lines[:0]
	for _, line := range lines {
		if line != rel {
			kept = append(kept, line)
		}
	}
	return s.writeManifest(config.AudioManifest, kept)
}

// ReadAudioManifest returns the paths listed in the audio manifest
func (s *AudioStore) ReadAudioManifest() ([]string, error) {
	s.audiosMu.Lock()
	defer s.audiosMu.Unlock()

	return s.readManifest(config.AudioManifest)
}

// readManifest returns trimmed non-empty lines; a missing file reads as empty.
// Callers hold the manifest's lock.
func (s *AudioStore) readManifest(name string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(s.root, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, storageError("failed to read manifest", name, err)
	}

	lines := []string{}
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// writeManifest writes to a temp file in the same folder and renames it over the target.
// Callers hold the manifest's lock.
func (s *AudioStore) writeManifest(name string, lines []string) error {
	target := filepath.Join(s.root, name)
	tmp := filepath.Join(s.root, fmt.Sprintf(".%s.%s.tmp", name, uuid.NewString()))

	if err := os.WriteFile(tmp, []byte(strings.Join(lines, "\n")), filePerm); err != nil {
		_ = os.Remove(tmp)
		return storageError("failed to write manifest", name, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return storageError("failed to replace manifest", name, err)
	}
	return nil
}

// resolve maps a slash-separated relative path to an absolute path inside the root
func (s *AudioStore) resolve(rel string) (string, error) {
	if rel == "" || strings.ContainsRune(rel, 0) {
		return "", contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid storage path %q", rel)
	}
	full := filepath.Join(s.root, filepath.FromSlash(rel))
	inside, err := filepath.Rel(s.root, full)
	if err != nil || inside == ".." || strings.HasPrefix(inside, ".."+string(filepath.Separator)) {
		return "", contextutils.WrapErrorf(contextutils.ErrInvalidInput, "storage path %q escapes the audio root", rel)
	}
	return full, nil
}

// NormalizeRelPath converts stored paths written with backslashes to forward slashes
func NormalizeRelPath(rel string) string {
	return strings.ReplaceAll(rel, `\`, "/")
}

// maxAnswerNameBytes leaves room for the id and extension under the 255-byte name limit
const maxAnswerNameBytes = 200

// AudioFileName builds the stored file name {answer}{id}{ext} with path separators and control
// characters removed. The answer part is cut at a rune boundary to stay under the name limit.
func AudioFileName(answer string, id int64, ext string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, answer)
	safe = truncateBytes(safe, maxAnswerNameBytes)
	return fmt.Sprintf("%s%d%s", safe, id, strings.ToLower(ext))
}

func truncateBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func dedupe(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line]; ok || line == "" {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}

func storageError(msg, target string, cause error) error {
	return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeStorage, contextutils.SeverityError, msg, target, cause)
}
