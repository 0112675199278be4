package prefs

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/coffersTech/probdash/internal/pkg/security"
)

// Preferences is the persisted UI state of one installation.
type Preferences struct {
	Member     string `json:"member"`
	Filter     string `json:"filter"`
	Sort       string `json:"sort"`
	TagsHidden bool   `json:"tags_hidden"`
	IDToken    string `json:"id_token,omitempty"`
}

// Store keeps Preferences in memory and on disk, encrypted.
type Store struct {
	filePath string
	cipher   *security.Cipher
	mu       sync.RWMutex
	data     Preferences
}

// NewStore creates a store backed by filePath, starting from defaults.
func NewStore(filePath string, c *security.Cipher, defaults Preferences) *Store {
	return &Store{
		filePath: filePath,
		cipher:   c,
		data:     defaults,
	}
}

// Load reads preferences from disk. A missing file keeps the defaults.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	encrypted, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) || (err == nil && len(encrypted) == 0) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "read preferences")
	}

	decrypted, err := s.cipher.Decrypt(encrypted)
	if err != nil {
		return errors.Wrap(err, "failed to decrypt preferences (invalid key or corrupted file)")
	}
	return errors.Wrap(json.Unmarshal(decrypted, &s.data), "decode preferences")
}

// saveLocked writes preferences to disk with encryption.
func (s *Store) saveLocked() error {
	jsonData, err := json.Marshal(s.data)
	if err != nil {
		return err
	}

	encrypted, err := s.cipher.Encrypt(jsonData)
	if err != nil {
		return errors.Wrap(err, "encrypt preferences")
	}
	return errors.Wrap(os.WriteFile(s.filePath, encrypted, 0600), "write preferences")
}

// commitLocked makes next current and saves it. On a failed save the
// previous preferences stay in effect.
func (s *Store) commitLocked(next Preferences) error {
	prev := s.data
	s.data = next
	if err := s.saveLocked(); err != nil {
		s.data = prev
		return err
	}
	return nil
}

// Get returns a copy of the current preferences.
func (s *Store) Get() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// Update replaces the view settings (member, filter, sort, tags). The
// sign-in token is left untouched.
func (s *Store) Update(p Preferences) (Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.IDToken = s.data.IDToken
	if err := s.commitLocked(p); err != nil {
		return s.data, err
	}
	return s.data, nil
}

// ToggleTags flips tag column visibility and returns the new state.
func (s *Store) ToggleTags() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data
	next.TagsHidden = !next.TagsHidden
	if err := s.commitLocked(next); err != nil {
		return s.data.TagsHidden, err
	}
	return s.data.TagsHidden, nil
}

// SignIn stores the identity token handed over by the sign-in widget.
func (s *Store) SignIn(idToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data
	next.IDToken = idToken
	return s.commitLocked(next)
}

// SignOut forgets the identity token.
func (s *Store) SignOut() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data
	next.IDToken = ""
	return s.commitLocked(next)
}

// TagsButtonLabel is the label of the tag toggle for the given state.
func TagsButtonLabel(hidden bool) string {
	if hidden {
		return "Show tags"
	}
	return "Hide tags"
}
