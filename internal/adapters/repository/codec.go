package repository

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/okian/weaklink/internal/domain/store"
)

func encodeDocument(d store.Document) ([]byte, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return b, nil
}

// decodeDocument keeps numbers as json.Number so integral counters survive.
func decodeDocument(b []byte) (store.Document, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var d store.Document
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return d, nil
}

// staged is a write waiting for commit.
type staged struct {
	path   string
	create bool
	fields store.Document
}

// stage validates and records a write.
func stage(writes []staged, path string, create bool, fields store.Document) ([]staged, error) {
	if err := store.ValidatePath(path); err != nil {
		return writes, err
	}
	return append(writes, staged{path: path, create: create, fields: store.Clone(fields)}), nil
}
