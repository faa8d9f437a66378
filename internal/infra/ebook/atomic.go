package ebook

import (
	"fmt"
	"os"
	"path/filepath"
)

// atomicFile writes to a temp file next to the target and renames it over the
// target on commit, so readers never see a half-written e-book.
type atomicFile struct {
	path string
	file *os.File
}

func newAtomicFile(path string) (*atomicFile, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".digest-*.epub.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	return &atomicFile{path: path, file: tmp}, nil
}

func (a *atomicFile) Write(p []byte) (int, error) {
	return a.file.Write(p)
}

func (a *atomicFile) commit() error {
	if err := a.file.Sync(); err != nil {
		a.abort()
		return fmt.Errorf("sync: %w", err)
	}
	if err := a.file.Close(); err != nil {
		_ = os.Remove(a.file.Name())
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Chmod(a.file.Name(), 0o644); err != nil {
		_ = os.Remove(a.file.Name())
		return fmt.Errorf("chmod: %w", err)
	}
	if err := os.Rename(a.file.Name(), a.path); err != nil {
		_ = os.Remove(a.file.Name())
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func (a *atomicFile) abort() {
	_ = a.file.Close()
	_ = os.Remove(a.file.Name())
}
