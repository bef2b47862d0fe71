// Package storage owns the short-lived audio artifact written for each
// transcription request. The artifact must not outlive its request: the
// handler removes it on every exit path.
package storage

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
)

// TempAudio is the scoped temporary copy of one uploaded recording.
type TempAudio struct {
	Path string
	Size int64
}

// SaveUpload writes the uploaded file to a unique temporary file under
// dir (the system temp dir when empty), preserving the extension so the
// decoder can dispatch on it.
func SaveUpload(file *multipart.FileHeader, dir string) (*TempAudio, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	out, err := os.CreateTemp(dir, "medscribe-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("create temp audio file: %w", err)
	}

	n, err := out.ReadFrom(src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(out.Name())
		return nil, fmt.Errorf("write temp audio file: %w", err)
	}

	return &TempAudio{Path: out.Name(), Size: n}, nil
}

// Remove deletes the artifact. Safe to call more than once.
func (t *TempAudio) Remove() error {
	if t == nil || t.Path == "" {
		return nil
	}
	err := os.Remove(t.Path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
