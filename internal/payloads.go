package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// PayloadExt is the extension of payload files picked up from a directory
const PayloadExt = ".json"

// IsPayloadFile reports whether path names a payload file
func IsPayloadFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(base), PayloadExt)
}

// FindPayloadFiles returns the payload files directly inside dir, in lexical order
func FindPayloadFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !IsPayloadFile(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// ReadPayloadFile reads one payload file into a RawDocument
func ReadPayloadFile(path string) (RawDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RawDocument{}, fmt.Errorf("failed to read payload file %s: %w", path, err)
	}
	return RawDocument{Name: filepath.Base(path), Data: data}, nil
}

// ReadPayloadDir reads every payload file of dir. Unreadable files are skipped
// with a warning so one bad file does not block the batch.
func ReadPayloadDir(dir string) ([]RawDocument, error) {
	files, err := FindPayloadFiles(dir)
	if err != nil {
		return nil, err
	}

	docs := make([]RawDocument, 0, len(files))
	for _, path := range files {
		doc, err := ReadPayloadFile(path)
		if err != nil {
			LogWarn("%v", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
