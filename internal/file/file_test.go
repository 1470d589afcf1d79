package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexhq/apex/internal/types"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	expanded, err := ExpandPath("~/notes/todo.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "notes/todo.txt"), expanded)

	unchanged, err := ExpandPath("/tmp/todo.txt")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/todo.txt", unchanged)
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "present.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	ok, err := Exists(path)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Exists(filepath.Join(dir, "absent.txt"))
	require.NoError(t, err)
	assert.False(t, ok)

	// A directory is not a file.
	ok, err = Exists(dir)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadAttachmentSniffsMIMEType(t *testing.T) {
	dir := t.TempDir()
	pngHeader := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

	byExtension := filepath.Join(dir, "picture.png")
	require.NoError(t, os.WriteFile(byExtension, pngHeader, 0644))
	attachment, err := ReadAttachment(byExtension)
	require.NoError(t, err)
	assert.Equal(t, "image/png", attachment.MIMEType)
	assert.Equal(t, "picture.png", attachment.Name)
	assert.Equal(t, pngHeader, attachment.Data)

	byContent := filepath.Join(dir, "picture")
	require.NoError(t, os.WriteFile(byContent, pngHeader, 0644))
	attachment, err = ReadAttachment(byContent)
	require.NoError(t, err)
	assert.Equal(t, "image/png", attachment.MIMEType)
}

func TestWriteAttachmentRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "downloads")
	attachment := &types.Attachment{
		Data:     []byte("payload"),
		MIMEType: "video/mp4",
		Name:     "generated-video.mp4",
	}

	path, err := WriteAttachment(dir, attachment)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "generated-video.mp4"), path)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, attachment.Data, written)
}
