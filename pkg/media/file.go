package media

import (
	"fmt"
	"os"
	"path/filepath"
)

// File is a local file selected for upload.
type File struct {
	Path string
	Name string
	Size int64
}

// Stat describes the file at path.
func Stat(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("media: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("media: %s is a directory", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return File{Path: abs, Name: filepath.Base(path), Size: info.Size()}, nil
}

// StatAll describes every path, failing on the first error.
func StatAll(paths []string) ([]File, error) {
	files := make([]File, 0, len(paths))
	for _, path := range paths {
		f, err := Stat(path)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}
