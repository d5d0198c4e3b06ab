// Package overview appends human-readable entries to the projects overview note.
package overview

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Header is written when the note is created.
const Header = "# Projects Overview\n\n"

// Note is an append-only markdown file.
type Note struct {
	path string
	mu   sync.Mutex
}

// NewNote returns a Note at path. The file is created on first Append.
func NewNote(path string) *Note {
	return &Note{path: path}
}

// Path returns the note location.
func (n *Note) Path() string {
	return n.path
}

// Append writes entry as one line, creating the file with Header if needed.
func (n *Note) Append(entry string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(n.path), 0o755); err != nil {
		return fmt.Errorf("creating overview dir: %w", err)
	}
	if _, err := os.Stat(n.path); errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(n.path, []byte(Header), 0o644); err != nil {
			return fmt.Errorf("creating overview note: %w", err)
		}
	}

	f, err := os.OpenFile(n.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening overview note: %w", err)
	}
	if _, err := f.WriteString(entry + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("appending overview note: %w", err)
	}
	return f.Close()
}

// NewProjectEntry formats the line recorded for a newly detected project.
func NewProjectEntry(at time.Time, brand, name, status string) string {
	return fmt.Sprintf("- %s: New %s project '%s' — stage: %s", at.UTC().Format("2006-01-02"), brand, name, status)
}
