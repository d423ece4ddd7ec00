// Package artifact stores synthesized reply audio on disk under turn-indexed
// keys. An artifact is created at most once and never overwritten.
package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session"
)

// URLPrefix is the HTTP path artifacts are served under.
const URLPrefix = "/audio"

var (
	// ErrExists is returned when an artifact already exists at a key.
	ErrExists = errors.New("artifact already exists")

	// ErrInvalidKey is returned for keys that cannot name a file.
	ErrInvalidKey = errors.New("invalid artifact key")
)

// Key addresses the reply audio of one turn.
type Key struct {
	SessionID string
	Index     int
}

// Name is the key's relative path, "<session>/<index>.wav".
func (k Key) Name() string {
	return path.Join(k.SessionID, strconv.Itoa(k.Index)+".wav")
}

// URL is the path the artifact is served under.
func (k Key) URL() string {
	return URLPrefix + "/" + k.Name()
}

func (k Key) validate() error {
	if !session.ValidID(k.SessionID) || k.Index < 0 {
		return fmt.Errorf("%w: %q/%d", ErrInvalidKey, k.SessionID, k.Index)
	}
	return nil
}

// Artifact is a stored audio file.
type Artifact struct {
	Key  Key
	Path string
	URL  string
	Size int64
}

// Store is a directory of artifacts.
type Store struct {
	dir string
}

// NewStore creates the artifact directory if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("artifact dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file path for key.
func (s *Store) Path(key Key) string {
	return filepath.Join(s.dir, filepath.FromSlash(key.Name()))
}

// Create writes data at key. The file appears complete or not at all, and an
// existing artifact yields ErrExists.
func (s *Store) Create(key Key, data []byte) (Artifact, error) {
	if err := key.validate(); err != nil {
		return Artifact{}, err
	}

	final := s.Path(key)
	dir := filepath.Dir(final)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Artifact{}, fmt.Errorf("creating session dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*.wav")
	if err != nil {
		return Artifact{}, fmt.Errorf("creating temp artifact: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return Artifact{}, fmt.Errorf("writing artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return Artifact{}, fmt.Errorf("syncing artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Artifact{}, fmt.Errorf("closing artifact: %w", err)
	}

	// Link fails when final exists, which makes this a create-once.
	if err := os.Link(tmp.Name(), final); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return Artifact{}, fmt.Errorf("%w: %s", ErrExists, key.Name())
		}
		return Artifact{}, fmt.Errorf("linking artifact: %w", err)
	}

	return Artifact{
		Key:  key,
		Path: final,
		URL:  key.URL(),
		Size: int64(len(data)),
	}, nil
}

// Exists reports whether an artifact is stored at key.
func (s *Store) Exists(key Key) bool {
	_, err := os.Stat(s.Path(key))
	return err == nil
}

// Remove deletes the artifact at key. Removing a missing artifact is not an
// error.
func (s *Store) Remove(key Key) error {
	if err := key.validate(); err != nil {
		return err
	}
	if err := os.Remove(s.Path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing artifact: %w", err)
	}
	return nil
}

// RemoveSession deletes every artifact of a session.
func (s *Store) RemoveSession(id string) error {
	if !session.ValidID(id) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, id)
	}
	if err := os.RemoveAll(filepath.Join(s.dir, id)); err != nil {
		return fmt.Errorf("removing session artifacts: %w", err)
	}
	return nil
}
