package file

import (
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/apexhq/apex/internal/types"
)

// ExpandPath expands a path to avoid `~`.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "getting user home dir")
	}
	return filepath.Join(home, path[2:]), nil
}

// Exists reports whether the path exists and is a regular file.
func Exists(filePath string) (bool, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "checking file existence")
	}
	return !info.IsDir(), nil
}

// ReadAttachment loads a local file into an inline attachment, sniffing the
// MIME type from the extension and falling back to content detection.
func ReadAttachment(path string) (*types.Attachment, error) {
	path, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading file")
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return &types.Attachment{
		Data:     data,
		MIMEType: mimeType,
		Name:     filepath.Base(path),
	}, nil
}

// WriteAttachment writes an attachment's payload into the given directory,
// returning the written path.
func WriteAttachment(dir string, attachment *types.Attachment) (string, error) {
	dir, err := ExpandPath(dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "creating directory")
	}
	path := filepath.Join(dir, attachment.Name)
	if err := os.WriteFile(path, attachment.Data, 0644); err != nil {
		return "", errors.Wrap(err, "writing file")
	}
	return path, nil
}
