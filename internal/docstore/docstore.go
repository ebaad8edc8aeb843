// Package docstore implements a small embedded document database: a
// directory of named collections, each persisted as one JSON file.
//
// Documents are schemaless JSON objects. On insert a collection assigns
// the document a sequential "cid" identifier starting at 0; identifiers
// are never reused, even across restarts, because the high-water mark
// is persisted alongside the documents.
//
// Mutations are in-memory only until Save is called - durability is
// explicitly the caller's responsibility.
//
// Thread Safety: all Collection methods are safe for concurrent use.
package docstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FieldCID is the document key holding the collection-assigned identifier.
const FieldCID = "cid"

// File permission modes.
const (
	dirPermissions  = 0750
	filePermissions = 0600
)

// Document is a schemaless JSON object stored in a collection.
type Document map[string]any

// CID returns the document's collection-assigned identifier.
// JSON round-trips turn numbers into float64, so both forms are accepted.
func (d Document) CID() (int64, bool) {
	return asInt64(d[FieldCID])
}

// Clone returns a shallow copy of the document.
func (d Document) Clone() Document {
	c := make(Document, len(d))
	for k, v := range d {
		c[k] = v
	}
	return c
}

// DB is a handle to a docstore directory.
type DB struct {
	dir string

	mu          sync.Mutex
	collections map[string]*Collection
}

// Open creates or opens a docstore directory.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("creating docstore directory: %w", err)
	}
	return &DB{
		dir:         dir,
		collections: make(map[string]*Collection),
	}, nil
}

// Collection returns the named collection, loading it from disk on
// first access. A missing or unparseable file starts the collection
// empty.
func (db *DB) Collection(name string) *Collection {
	db.mu.Lock()
	defer db.mu.Unlock()

	if c, ok := db.collections[name]; ok {
		return c
	}

	c := &Collection{
		path: filepath.Join(db.dir, name+".json"),
	}
	c.load()
	db.collections[name] = c
	return c
}

// collectionFile is the on-disk representation of a collection.
type collectionFile struct {
	NextCID   int64      `json:"next_cid"`
	Documents []Document `json:"documents"`
}

// Collection is an ordered set of documents with sequential identifiers.
type Collection struct {
	mu      sync.Mutex
	path    string
	docs    []Document
	nextCID int64
}

// load reads the collection file. Anything unreadable or unparseable
// means the collection starts empty.
func (c *Collection) load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return
	}

	var file collectionFile
	if err := json.Unmarshal(data, &file); err != nil {
		return
	}

	c.docs = file.Documents
	c.nextCID = file.NextCID

	// Guard against a stale high-water mark in a hand-edited file.
	for _, doc := range c.docs {
		if cid, ok := doc.CID(); ok && cid >= c.nextCID {
			c.nextCID = cid + 1
		}
	}
}

// Insert adds a document and returns its assigned identifier.
func (c *Collection) Insert(doc Document) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := doc.Clone()
	cid := c.nextCID
	c.nextCID++
	stored[FieldCID] = cid
	c.docs = append(c.docs, stored)
	return cid
}

// Replace swaps the document with the given identifier for a new one,
// preserving its position and identifier. Returns false if no document
// matches.
func (c *Collection) Replace(cid int64, doc Document) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, existing := range c.docs {
		if id, ok := existing.CID(); ok && id == cid {
			stored := doc.Clone()
			stored[FieldCID] = cid
			c.docs[i] = stored
			return true
		}
	}
	return false
}

// Remove deletes the document with the given identifier.
// Returns false if no document matches. Identifiers are not reused.
func (c *Collection) Remove(cid int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, existing := range c.docs {
		if id, ok := existing.CID(); ok && id == cid {
			c.docs = append(c.docs[:i], c.docs[i+1:]...)
			return true
		}
	}
	return false
}

// Items returns all documents in insertion order.
func (c *Collection) Items() []Document {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]Document, 0, len(c.docs))
	for _, doc := range c.docs {
		items = append(items, doc.Clone())
	}
	return items
}

// FindOne returns the first document whose field equals the given
// value. Values are compared after JSON-style numeric coercion.
func (c *Collection) FindOne(field string, value any) (Document, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, doc := range c.docs {
		if fieldEquals(doc[field], value) {
			return doc.Clone(), true
		}
	}
	return nil, false
}

// Len returns the number of documents in the collection.
func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.docs)
}

// Save flushes the collection to its file. Until Save is called,
// mutations live only in memory.
func (c *Collection) Save() error {
	c.mu.Lock()
	file := collectionFile{
		NextCID:   c.nextCID,
		Documents: c.docs,
	}
	data, err := json.MarshalIndent(file, "", "  ")
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encoding collection: %w", err)
	}

	if err := os.WriteFile(c.path, data, filePermissions); err != nil {
		return fmt.Errorf("writing collection: %w", err)
	}
	return nil
}

// asInt64 coerces JSON-compatible numeric values to int64.
func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

// fieldEquals compares two JSON-compatible values, treating numeric
// types as equal when they represent the same integer.
func fieldEquals(a, b any) bool {
	if ai, ok := asInt64(a); ok {
		if bi, ok := asInt64(b); ok {
			return ai == bi
		}
		return false
	}
	return a == b
}
