package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrFetch is returned when a document source cannot be read.
	ErrFetch = errors.New("fetching content document")
	// ErrDecode is returned when a document is not valid JSON or lacks its
	// item list.
	ErrDecode = errors.New("decoding content document")
)

// Document is one kind's full item list as stored on disk:
// {"projects": [...]} for works and {"posts": [...]} for blog.
type Document struct {
	Kind  Kind
	Items []Item
}

func (d Document) MarshalJSON() ([]byte, error) {
	items := make([]Item, len(d.Items))
	copy(items, d.Items)
	for i := range items {
		items[i].Kind = d.Kind
	}
	return json.Marshal(map[string][]Item{d.Kind.DocumentKey(): items})
}

// Encode writes the document as JSON indented by two spaces.
func (d Document) Encode() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Decode parses a whole document before returning any item, so a truncated
// or malformed document yields an error and no data.
func Decode(r io.Reader, kind Kind) (Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	return DecodeBytes(data, kind)
}

// DecodeBytes is Decode over an in-memory document. Ids must be unique.
func DecodeBytes(data []byte, kind Kind) (Document, error) {
	var top map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&top); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if dec.More() {
		return Document{}, fmt.Errorf("%w: trailing data after document", ErrDecode)
	}
	raw, ok := top[kind.DocumentKey()]
	if !ok {
		return Document{}, fmt.Errorf("%w: missing %q list", ErrDecode, kind.DocumentKey())
	}

	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if items == nil {
		items = []Item{}
	}
	seen := make(map[int]bool, len(items))
	for i := range items {
		if seen[items[i].ID] {
			return Document{}, fmt.Errorf("%w: duplicate id %d", ErrDecode, items[i].ID)
		}
		seen[items[i].ID] = true
		items[i].Kind = kind
		items[i].Normalize()
	}
	return Document{Kind: kind, Items: items}, nil
}

// ItemsFromPayload decodes the "data" object of a save request. It is used
// to validate a payload before it is written.
func ItemsFromPayload(kind Kind, payload json.RawMessage) ([]Item, error) {
	doc, err := DecodeBytes(payload, kind)
	if err != nil {
		return nil, err
	}
	return doc.Items, nil
}
