// Package report persists markdown documents under a fixed output directory.
package report

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/i2y/papermcp/internal/domain"
)

// Characters that commonly break filenames on some platform. Path separators
// are left alone: the traversal check has already run on the raw name, so a
// remaining separator just targets a subdirectory of the output root.
var invalidFilenameChars = regexp.MustCompile(`[<>:"\\|?*]`)

// Writer saves markdown text under a single output root. Writes are
// serialized; concurrent saves to the same filename are last-write-wins.
type Writer struct {
	root   string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewWriter creates a Writer rooted at dir. The directory is created lazily
// on the first save.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	return &Writer{
		root:   filepath.Clean(dir),
		logger: logger.With("component", "report_writer"),
	}
}

// Root returns the output directory.
func (w *Writer) Root() string { return w.root }

// Save writes text to filename inside the output root and returns the path
// written. The raw filename is checked against the root before any rewriting,
// so a name like "../escape.md" fails validation instead of being silently
// neutralized. Special characters are then replaced with hyphens and ".md"
// is appended when missing. Saving to an existing name overwrites it.
func (w *Writer) Save(ctx context.Context, text, filename string) (string, error) {
	if text == "" {
		return "", domain.ValidationError("text must not be empty")
	}
	trimmed := strings.TrimSpace(filename)
	if trimmed == "" {
		return "", domain.ValidationError("filename must not be empty")
	}
	if filepath.IsAbs(trimmed) {
		return "", domain.ValidationError("filename must be relative, got %q", filename)
	}
	if !withinRoot(w.root, trimmed) {
		return "", domain.ValidationError("filename %q escapes the output directory", filename)
	}

	name := invalidFilenameChars.ReplaceAllString(trimmed, "-")
	if !strings.HasSuffix(name, ".md") {
		name += ".md"
	}
	path := filepath.Join(w.root, name)

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		w.logger.ErrorContext(ctx, "Failed to create output directory", slog.Any("error", err))
		return "", domain.IOError(err, "failed to create output directory for %q", name)
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		w.logger.ErrorContext(ctx, "Failed to write report", slog.String("path", path), slog.Any("error", err))
		return "", domain.IOError(err, "failed to write %q", name)
	}

	w.logger.InfoContext(ctx, "Saved report", slog.String("path", path), slog.Int("bytes", len(text)))
	return path, nil
}

// withinRoot reports whether filename, resolved against root, stays inside
// root.
func withinRoot(root, filename string) bool {
	candidate := filepath.Clean(filepath.Join(root, filename))
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "..")
}
