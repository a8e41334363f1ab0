package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// libraryDocument is the on-disk layout of a JSONStore file.
type libraryDocument struct {
	Version int `json:"version"`
	Snapshot
}

const documentVersion = 1

// JSONStore keeps the whole library in one JSON document. Saves write a
// temporary file and rename it over the old one.
type JSONStore struct {
	path string
}

// NewJSONStore returns a store backed by the file at path. The file is
// created on first save.
func NewJSONStore(path string) (*JSONStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	return &JSONStore{path: path}, nil
}

func (j *JSONStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(j.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", j.path, err)
	}

	var doc libraryDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", j.path, err)
	}
	if doc.Version > documentVersion {
		return nil, fmt.Errorf("%s has version %d, newest supported is %d", j.path, doc.Version, documentVersion)
	}
	for i := range doc.Users {
		if doc.Users[i].BorrowedBooks == nil {
			doc.Users[i].BorrowedBooks = []string{}
		}
	}
	return &doc.Snapshot, nil
}

func (j *JSONStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(libraryDocument{Version: documentVersion, Snapshot: *snap}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode library: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(j.path), filepath.Base(j.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), j.path); err != nil {
		return fmt.Errorf("replace %s: %w", j.path, err)
	}
	return nil
}

func (j *JSONStore) Close() error { return nil }
