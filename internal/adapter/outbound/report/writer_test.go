package report_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/papermcp/internal/adapter/outbound/report"
	"github.com/i2y/papermcp/internal/domain"
)

func newTestWriter(t *testing.T) (*report.Writer, string) {
	root := t.TempDir()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return report.NewWriter(root, logger), root
}

func TestWriter_Save(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	t.Run("writes exact content under the root", func(t *testing.T) {
		w, root := newTestWriter(t)

		path, err := w.Save(ctx, "hello", "a.md")
		require.NoError(err)
		assert.Equal(filepath.Join(root, "a.md"), path)

		content, err := os.ReadFile(path)
		require.NoError(err)
		assert.Equal("hello", string(content))
	})

	t.Run("appends .md when missing", func(t *testing.T) {
		w, root := newTestWriter(t)

		path, err := w.Save(ctx, "# Notes", "notes")
		require.NoError(err)
		assert.Equal(filepath.Join(root, "notes.md"), path)
	})

	t.Run("replaces special characters with hyphens", func(t *testing.T) {
		w, root := newTestWriter(t)

		path, err := w.Save(ctx, "body", `my:report?"v1*`)
		require.NoError(err)
		assert.Equal(filepath.Join(root, "my-report--v1-.md"), path)
	})

	t.Run("creates subdirectories inside the root", func(t *testing.T) {
		w, root := newTestWriter(t)

		path, err := w.Save(ctx, "nested", "sub/nested.md")
		require.NoError(err)
		assert.Equal(filepath.Join(root, "sub", "nested.md"), path)

		content, err := os.ReadFile(path)
		require.NoError(err)
		assert.Equal("nested", string(content))
	})

	t.Run("overwrites an existing file", func(t *testing.T) {
		w, _ := newTestWriter(t)

		_, err := w.Save(ctx, "first", "a.md")
		require.NoError(err)
		path, err := w.Save(ctx, "second", "a.md")
		require.NoError(err)

		content, err := os.ReadFile(path)
		require.NoError(err)
		assert.Equal("second", string(content), "repeated saves overwrite, last write wins")
	})
}

func TestWriter_Save_Rejections(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		text     string
		filename string
	}{
		{name: "empty text", text: "", filename: "a.md"},
		{name: "empty filename", text: "hello", filename: ""},
		{name: "blank filename", text: "hello", filename: "   "},
		{name: "absolute filename", text: "hello", filename: "/tmp/escape.md"},
		{name: "parent traversal", text: "hello", filename: "../escape.md"},
		{name: "nested traversal", text: "hello", filename: "sub/../../escape.md"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, root := newTestWriter(t)

			path, err := w.Save(ctx, tt.text, tt.filename)
			require.Error(err)
			assert.Equal(domain.KindValidation, domain.KindOf(err))
			assert.Empty(path)

			// Nothing may be written outside (or inside) the root on a
			// rejected save.
			escaped := filepath.Join(filepath.Dir(root), "escape.md")
			_, statErr := os.Stat(escaped)
			assert.True(os.IsNotExist(statErr), "no file may be created outside the output root")

			entries, readErr := os.ReadDir(root)
			require.NoError(readErr)
			assert.Empty(entries, "a rejected save must not create files")
		})
	}
}

func TestWriter_Save_IOError(t *testing.T) {
	// Using a regular file as the output root makes directory creation fail.
	rootFile := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(rootFile, []byte("x"), 0644))

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	w := report.NewWriter(rootFile, logger)

	_, err := w.Save(context.Background(), "hello", "sub/a.md")
	require.Error(t, err)
	assert.Equal(t, domain.KindIO, domain.KindOf(err))
}

func TestSaveToolDefinition(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	w, root := newTestWriter(t)
	defs := w.Definitions()
	require.Len(defs, 1)

	def := defs[0]
	assert.Equal("save_md_to_file", def.Name)
	assert.ElementsMatch([]string{"text", "filename"}, def.InputSchema.Required)
	require.NotNil(def.Handler)

	result, err := def.Handler(context.Background(), map[string]interface{}{
		"text":     "# Title",
		"filename": "report",
	})
	require.NoError(err)
	assert.Equal(filepath.Join(root, "report.md"), result)
}
