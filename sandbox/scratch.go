package sandbox

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// scratchNameAttempts bounds the search for an unused scratch name.
const scratchNameAttempts = 16

// ErrInvalidAuthor is returned when an author id cannot be used as a directory name.
var ErrInvalidAuthor = errors.New("invalid author id")

// Scratch stores snippet sources on the host under <root>/<author>/<name><ext>.
type Scratch struct {
	root string
	fs   FileSystem
}

// NewScratch creates scratch storage rooted at root.
func NewScratch(root string, fs FileSystem) *Scratch {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	if fs == nil {
		fs = RealFileSystem{}
	}
	return &Scratch{root: root, fs: fs}
}

// Root returns the absolute scratch directory.
func (s *Scratch) Root() string { return s.root }

// Save writes code to a fresh file in the author's directory and returns its path.
// File names start with a letter so they are valid class names.
func (s *Scratch) Save(author, ext, code string) (string, error) {
	if err := validateAuthor(author); err != nil {
		return "", err
	}

	dir := filepath.Join(s.root, author)
	if err := s.fs.MkdirAll(dir, DirPermission); err != nil {
		return "", fmt.Errorf("failed to create scratch dir: %w", err)
	}

	for range scratchNameAttempts {
		p := filepath.Join(dir, scratchName()+ext)
		exists, err := s.fs.FileExists(p)
		if err != nil {
			return "", fmt.Errorf("failed to stat scratch file: %w", err)
		}
		if exists {
			continue
		}
		if err := s.Write(p, code); err != nil {
			return "", err
		}
		return p, nil
	}
	return "", fmt.Errorf("no free scratch name in %s after %d attempts", dir, scratchNameAttempts)
}

// Write replaces the contents of a saved file.
func (s *Scratch) Write(path, code string) error {
	if err := s.fs.WriteFile(path, []byte(code), FilePermission); err != nil {
		return fmt.Errorf("failed to write scratch file: %w", err)
	}
	return nil
}

// Remove deletes a saved file.
func (s *Scratch) Remove(path string) error {
	return s.fs.Remove(path)
}

func scratchName() string {
	return "s" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func validateAuthor(author string) error {
	if author == "" || author == "." || author == ".." || strings.ContainsAny(author, `/\`) || strings.ContainsRune(author, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidAuthor, author)
	}
	return nil
}
