package contact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Source supplies the current address-book snapshot.
// Every call materializes a fresh list; there is no paging contract.
type Source interface {
	ListContacts(ctx context.Context) ([]Contact, error)
}

// StaticSource is an in-memory address book.
type StaticSource struct {
	mu       sync.RWMutex
	contacts []Contact
}

// NewStaticSource returns a source serving a copy of contacts.
func NewStaticSource(contacts ...Contact) *StaticSource {
	s := &StaticSource{}
	s.Set(contacts)
	return s
}

// Set replaces the address book.
func (s *StaticSource) Set(contacts []Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts = append([]Contact(nil), contacts...)
}

// ListContacts implements Source.
func (s *StaticSource) ListContacts(_ context.Context) ([]Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Contact(nil), s.contacts...), nil
}

// FileSource reads the address book from a JSON or YAML file on every call.
// A missing file is an empty address book.
type FileSource struct {
	Path string
}

// NewFileSource returns a FileSource for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// addressBook is the object form of the file: {"contacts": [...]}.
type addressBook struct {
	Contacts []Contact `json:"contacts" yaml:"contacts"`
}

// ListContacts implements Source.
func (s *FileSource) ListContacts(ctx context.Context) ([]Contact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Contact{}, nil
		}
		return nil, fmt.Errorf("read address book: %w", err)
	}

	raw, err := parseAddressBook(s.Path, data)
	if err != nil {
		return nil, err
	}
	return Clean(raw), nil
}

// ModTime returns the file's modification time, zero if it does not exist.
// The scheduler polls it to fire data-change notifications.
func (s *FileSource) ModTime() (time.Time, error) {
	info, err := os.Stat(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func parseAddressBook(path string, data []byte) ([]Contact, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var list []Contact
		if err := yaml.Unmarshal(data, &list); err == nil {
			return list, nil
		}
		var book addressBook
		if err := yaml.Unmarshal(data, &book); err != nil {
			return nil, fmt.Errorf("parse address book %s: %w", filepath.Base(path), err)
		}
		return book.Contacts, nil
	default:
		trimmed := strings.TrimSpace(string(data))
		if strings.HasPrefix(trimmed, "[") {
			var list []Contact
			if err := json.Unmarshal(data, &list); err != nil {
				return nil, fmt.Errorf("parse address book %s: %w", filepath.Base(path), err)
			}
			return list, nil
		}
		var book addressBook
		if err := json.Unmarshal(data, &book); err != nil {
			return nil, fmt.Errorf("parse address book %s: %w", filepath.Base(path), err)
		}
		return book.Contacts, nil
	}
}

// Clean drops entries without an id and keeps the first entry of each duplicate id.
func Clean(in []Contact) []Contact {
	out := make([]Contact, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, c := range in {
		c.ID = strings.TrimSpace(c.ID)
		if c.ID == "" || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		c.DisplayName = strings.TrimSpace(c.DisplayName)
		c.PhotoRef = strings.TrimSpace(c.PhotoRef)
		out = append(out, c)
	}
	return out
}
