package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// AuxFile is the auxiliary data file kept next to the node file. It is
// opened read/write for the index lifetime but nothing is stored in it yet.
type AuxFile struct {
	file *os.File
	path string
}

func OpenAuxFile(path string) (*AuxFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), FileMode0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, FileMode0644)
	if err != nil {
		return nil, fmt.Errorf("open aux file: %w", err)
	}
	return &AuxFile{file: f, path: path}, nil
}

// Reset truncates the file, used when the index is created from scratch.
func (a *AuxFile) Reset() error {
	if a.file == nil {
		return ErrFileClosed
	}
	return a.file.Truncate(0)
}

func (a *AuxFile) Size() (int64, error) {
	if a.file == nil {
		return 0, ErrFileClosed
	}
	info, err := a.file.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (a *AuxFile) Path() string { return a.path }

func (a *AuxFile) Close() error {
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}
