// Package rootstate persists the traversal root in Git plumbing, as a YAML
// blob behind a repo-local ref. The state survives process restarts and
// branch switches without ever touching the working tree.
package rootstate

import (
	"fmt"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"gopkg.in/yaml.v3"

	"github.com/runoshun/beanloop/internal/domain"
)

// RefName is the ref the root blob hangs off.
const RefName = "refs/beanloop/root"

// Store implements domain.RootStore using Git plumbing (a ref and a blob).
type Store struct {
	repo *git.Repository
	mu   sync.RWMutex
}

var _ domain.RootStore = (*Store)(nil)

// New opens the repository at repoPath and returns a Store for it.
func New(repoPath string) (*Store, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, fmt.Errorf("open git repository: %w", err)
	}
	return &Store{repo: repo}, nil
}

// NewWithRepo creates a Store with an existing repository instance.
func NewWithRepo(repo *git.Repository) *Store {
	return &Store{repo: repo}
}

// Load returns the stored root, or nil when none is set.
func (s *Store) Load() (*domain.RootState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ref, err := s.repo.Reference(plumbing.ReferenceName(RefName), true)
	if err != nil {
		if err == plumbing.ErrReferenceNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get root ref: %w", err)
	}

	data, err := s.readBlob(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("read root state: %w", err)
	}

	var state domain.RootState
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode root state: %w", err)
	}
	if state.TaskID == "" {
		return nil, nil
	}
	return &state, nil
}

// Save stores the root.
func (s *Store) Save(state domain.RootState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal root state: %w", err)
	}

	hash, err := s.writeBlob(data)
	if err != nil {
		return err
	}

	ref := plumbing.NewHashReference(plumbing.ReferenceName(RefName), hash)
	if err := s.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("set root ref: %w", err)
	}
	return nil
}

// Clear removes the stored root. Clearing an unset root is a no-op.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Storer.RemoveReference(plumbing.ReferenceName(RefName)); err != nil {
		return fmt.Errorf("remove root ref: %w", err)
	}
	return nil
}

// writeBlob writes data to a blob and returns the hash.
func (s *Store) writeBlob(data []byte) (plumbing.Hash, error) {
	obj := s.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))

	writer, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("create blob writer: %w", err)
	}

	if _, writeErr := writer.Write(data); writeErr != nil {
		_ = writer.Close()
		return plumbing.ZeroHash, fmt.Errorf("write blob: %w", writeErr)
	}
	_ = writer.Close()

	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("store blob: %w", err)
	}
	return hash, nil
}

// readBlob reads data from a blob.
func (s *Store) readBlob(hash plumbing.Hash) ([]byte, error) {
	blob, err := s.repo.BlobObject(hash)
	if err != nil {
		return nil, fmt.Errorf("get blob: %w", err)
	}

	reader, err := blob.Reader()
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	defer func() { _ = reader.Close() }()

	data := make([]byte, blob.Size)
	if _, err := reader.Read(data); err != nil {
		return nil, fmt.Errorf("read blob data: %w", err)
	}
	return data, nil
}
