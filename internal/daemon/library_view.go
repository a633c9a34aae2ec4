package daemon

import (
	"sync"

	"lectern/internal/library"
)

// libraryView is a reloadable catalog handle. The scheduler and trigger
// hold it for the daemon's lifetime while imports swap the catalog
// underneath.
type libraryView struct {
	dir string

	mu      sync.RWMutex
	catalog *library.Catalog
}

func newLibraryView(dir string) *libraryView {
	return &libraryView{dir: dir}
}

// Reload rescans the library directory.
func (v *libraryView) Reload() error {
	catalog, err := library.LoadCatalog(v.dir)
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.catalog = catalog
	v.mu.Unlock()
	return nil
}

// Book implements scheduler.BookSource.
func (v *libraryView) Book(id string) (*library.Book, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.catalog == nil {
		return nil, false
	}
	return v.catalog.Book(id)
}

// Books lists all known books.
func (v *libraryView) Books() []*library.Book {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.catalog == nil {
		return nil
	}
	return v.catalog.Books()
}

// Len returns the number of known books.
func (v *libraryView) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.catalog == nil {
		return 0
	}
	return v.catalog.Len()
}
