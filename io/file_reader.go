package io

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

var ErrNotExists = errors.New("file does not exist")

type FileReader struct {
	path   string
	exists bool
}

func NewFileReader(path string) *FileReader {

	_, err := os.Stat(path)

	return &FileReader{
		path:   path,
		exists: err == nil,
	}
}

func (f *FileReader) Path() string {
	return f.path
}

func (f *FileReader) Exists() bool {
	return f.exists
}

func (f *FileReader) ReadAll() ([]byte, error) {

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotExists, f.path)
	}

	return data, err
}

// WriteAtomic replaces the file contents. Data goes to a temp file in the same
// directory which is synced and renamed over the target, so readers see either
// the old or the new contents.
func (f *FileReader) WriteAtomic(data []byte) (topErr error) {

	dir := filepath.Dir(f.path)

	if err := EnsureDir(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("unable to create temp file: %w", err)
	}

	defer func() {
		if topErr != nil {
			os.Remove(tmp.Name())
		}
	}()

	written, err := tmp.Write(data)
	if err == nil && written != len(data) {
		err = errors.New("written bytes mismatch")
	}
	if err == nil {
		err = tmp.Sync()
	}

	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("unable to write %s: %w", tmp.Name(), err)
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("unable to replace %s: %w", f.path, err)
	}

	f.exists = true

	return nil
}

func EnsureDir(path string) error {

	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		log.Printf("unable to create directory : %s", path)
		return err
	}

	log.Printf(" >> created %s folder", path)

	return nil
}
