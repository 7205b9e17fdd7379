package executor

import (
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"openapi-mcp/internal/api"
)

const defaultFileContentType = "application/octet-stream"

// loadedFile is a file descriptor with its content read.
type loadedFile struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

// loadFile reads the content of one descriptor. Exactly one source must be set.
func loadFile(field string, fd api.FileDescriptor) (*loadedFile, error) {
	sources := 0
	for _, set := range []bool{fd.Base64 != "", fd.Text != nil, fd.Path != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return nil, api.NewRequestError(
			fmt.Sprintf("File '%s' must provide exactly one of base64, text or path", field),
			map[string]any{"field": field},
		)
	}

	f := &loadedFile{field: field, filename: fd.Filename, contentType: fd.ContentType}
	switch {
	case fd.Base64 != "":
		data, err := base64.StdEncoding.DecodeString(fd.Base64)
		if err != nil {
			return nil, api.NewRequestError(fmt.Sprintf("File '%s' has invalid base64 content", field), map[string]any{
				"field": field,
			}).WithCause(err)
		}
		f.data = data
	case fd.Text != nil:
		f.data = []byte(*fd.Text)
	default:
		data, err := os.ReadFile(fd.Path)
		if err != nil {
			return nil, api.NewRequestError(fmt.Sprintf("Cannot read file '%s'", fd.Path), map[string]any{
				"field": field,
				"cause": err.Error(),
			}).WithCause(err)
		}
		f.data = data
		if f.filename == "" {
			f.filename = filepath.Base(fd.Path)
		}
	}

	if f.filename == "" {
		f.filename = field
	}
	if f.contentType == "" {
		f.contentType = mime.TypeByExtension(filepath.Ext(f.filename))
	}
	if f.contentType == "" {
		f.contentType = defaultFileContentType
	}
	return f, nil
}

func loadFiles(files map[string]api.FileDescriptor) ([]*loadedFile, error) {
	loaded := make([]*loadedFile, 0, len(files))
	for _, field := range sortedKeys(files) {
		f, err := loadFile(field, files[field])
		if err != nil {
			return nil, err
		}
		loaded = append(loaded, f)
	}
	return loaded, nil
}
