// Package playback mirrors the player's reported state inside the daemon.
// The player pushes updates over IPC; the trigger and status surfaces read
// the mirror instead of asking the player.
package playback

import (
	"sync"
	"time"
)

// Status is the last reported player position.
type Status struct {
	BookID    string    `json:"book_id"`
	ChapterID string    `json:"chapter_id"`
	Position  float64   `json:"position"`
	Playing   bool      `json:"playing"`
	UpdatedAt time.Time `json:"updated_at"`
}

// State holds the daemon's view of the player. Safe for concurrent use.
type State struct {
	mu             sync.RWMutex
	current        Status
	chaptersLoaded map[string]bool
}

// NewState returns an empty playback mirror.
func NewState() *State {
	return &State{chaptersLoaded: make(map[string]bool)}
}

// Update replaces the current status and returns the previous one.
func (s *State) Update(status Status) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.current
	status.UpdatedAt = time.Now()
	s.current = status
	return prev
}

// Current returns the last reported status.
func (s *State) Current() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// MarkChaptersLoaded records that the player finished loading a book's
// chapter index. Returns false when the book was already marked.
func (s *State) MarkChaptersLoaded(bookID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chaptersLoaded[bookID] {
		return false
	}
	s.chaptersLoaded[bookID] = true
	return true
}

// ChaptersLoaded reports whether the book's chapter index has been loaded.
func (s *State) ChaptersLoaded(bookID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chaptersLoaded[bookID]
}

// ForgetBook clears all recorded state for a book.
func (s *State) ForgetBook(bookID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chaptersLoaded, bookID)
	if s.current.BookID == bookID {
		s.current = Status{}
	}
}
