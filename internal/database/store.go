// Package database is a small document store: JSON documents addressed by id,
// with secondary indexes ("views") maintained on every write.
package database

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/oklog/ulid/v2"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrConflict    = errors.New("document update conflict")
	ErrUnknownView = errors.New("unknown view")
)

type Store interface {
	// Get decodes the document with the given id into dst.
	Get(ctx context.Context, id string, dst any) error
	// Create stores doc. When doc has no _id one is assigned. An explicit
	// _id that already exists fails with ErrConflict and leaves the stored
	// document untouched.
	Create(ctx context.Context, doc any) (id string, rev string, err error)
	Query(ctx context.Context, design, view string, q ViewQuery) ([]Row, error)
	Close() error
}

type ViewQuery struct {
	Keys       []string
	Descending bool
}

type Row struct {
	Id  string
	Key string
	Doc json.RawMessage
}

// Decode unmarshals every row's document into a slice of T.
func Decode[T any](rows []Row) ([]T, error) {
	result := make([]T, 0, len(rows))
	for _, row := range rows {
		var v T
		if err := json.Unmarshal(row.Doc, &v); err != nil {
			return nil, fmt.Errorf("decode row %s: %w", row.Id, err)
		}
		result = append(result, v)
	}
	return result, nil
}

// document is a doc ready to be written: its final body and the index
// entries it produces.
type document struct {
	Id      string
	Rev     string
	Type    string
	Body    []byte
	Entries []indexEntry
}

type indexEntry struct {
	Design string
	View   string
	Key    string
	Sort   string
}

func prepare(designs []Design, doc any) (document, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return document{}, fmt.Errorf("marshal document: %w", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return document{}, fmt.Errorf("document must be an object: %w", err)
	}
	delete(fields, "_rev")

	id, _ := fields["_id"].(string)
	if id == "" {
		id = ulid.Make().String()
		fields["_id"] = id
	}

	content, err := json.Marshal(fields)
	if err != nil {
		return document{}, fmt.Errorf("marshal document: %w", err)
	}
	sum := md5.Sum(content)
	rev := "1-" + hex.EncodeToString(sum[:])
	fields["_rev"] = rev

	body, err := json.Marshal(fields)
	if err != nil {
		return document{}, fmt.Errorf("marshal document: %w", err)
	}

	docType, _ := fields["type"].(string)
	result := document{Id: id, Rev: rev, Type: docType, Body: body}
	for _, d := range designs {
		for _, v := range d.Views {
			key, sort, ok := v.Map(fields)
			if !ok {
				continue
			}
			result.Entries = append(result.Entries, indexEntry{
				Design: d.Name, View: v.Name, Key: key, Sort: sort,
			})
		}
	}
	return result, nil
}

func findView(designs []Design, design, view string) bool {
	for _, d := range designs {
		if d.Name != design {
			continue
		}
		for _, v := range d.Views {
			if v.Name == view {
				return true
			}
		}
	}
	return false
}

func unmarshalDoc(body []byte, dst any) error {
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("unmarshal document: %w", err)
	}
	return nil
}
