// Package catalogio reads catalog files for bulk import.
package catalogio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry is one book row of an import file.
type Entry struct {
	ID       string `yaml:"book_id"`
	Title    string `yaml:"title"`
	Author   string `yaml:"author"`
	Category string `yaml:"category"`
}

var csvHeader = []string{"book_id", "title", "author", "category"}

// ReadCSV parses rows of book_id,title,author,category. A header row
// matching those names is skipped.
func ReadCSV(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var entries []Entry
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		if line == 1 && isHeader(rec) {
			continue
		}
		entries = append(entries, Entry{
			ID:       strings.TrimSpace(rec[0]),
			Title:    strings.TrimSpace(rec[1]),
			Author:   strings.TrimSpace(rec[2]),
			Category: strings.TrimSpace(rec[3]),
		})
	}
	return entries, nil
}

func isHeader(rec []string) bool {
	for i, name := range csvHeader {
		if !strings.EqualFold(strings.TrimSpace(rec[i]), name) {
			return false
		}
	}
	return true
}

// ReadYAML parses a document of the form
//
//	books:
//	  - book_id: B1
//	    title: Dune
//	    author: Frank Herbert
//	    category: SciFi
func ReadYAML(r io.Reader) ([]Entry, error) {
	var doc struct {
		Books []Entry `yaml:"books"`
	}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return doc.Books, nil
}

// ReadFile picks the parser from the file extension.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(f)
	case ".yaml", ".yml":
		return ReadYAML(f)
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", filepath.Ext(path))
	}
}
