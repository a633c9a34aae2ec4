package library

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ManifestName is the per-book chapter index file written by the import flow.
const ManifestName = "book.json"

// LoadBook reads and validates a single book manifest. Relative audio paths
// resolve against the manifest's directory.
func LoadBook(path string) (*Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var book Book
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if !filepath.IsAbs(book.AudioPath) && book.AudioPath != "" {
		book.AudioPath = filepath.Join(filepath.Dir(path), book.AudioPath)
	}
	if err := book.Validate(); err != nil {
		return nil, err
	}
	return &book, nil
}

// Catalog indexes the book manifests found under the library directory.
type Catalog struct {
	books map[string]*Book
}

// LoadCatalog walks the library directory and loads every manifest found.
// A missing directory yields an empty catalog, not an error, so the daemon
// can start before any book has been imported.
func LoadCatalog(dir string) (*Catalog, error) {
	catalog := &Catalog{books: make(map[string]*Book)}
	if strings.TrimSpace(dir) == "" {
		return catalog, nil
	}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() || d.Name() != ManifestName {
			return nil
		}
		book, loadErr := LoadBook(path)
		if loadErr != nil {
			return loadErr
		}
		if _, ok := catalog.books[book.ID]; ok {
			return fmt.Errorf("duplicate book id %q at %s", book.ID, path)
		}
		catalog.books[book.ID] = book
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan library: %w", err)
	}
	return catalog, nil
}

// Book returns the book with the given id.
func (c *Catalog) Book(id string) (*Book, bool) {
	book, ok := c.books[id]
	return book, ok
}

// Books returns all books ordered by id.
func (c *Catalog) Books() []*Book {
	out := make([]*Book, 0, len(c.books))
	for _, book := range c.books {
		out = append(out, book)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of books in the catalog.
func (c *Catalog) Len() int {
	return len(c.books)
}
