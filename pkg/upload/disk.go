package upload

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/vango-dev/livehooks/internal/errors"
)

// DiskStore stores uploads in a local directory. Each upload is a data
// file named by its ref plus a ".meta" JSON sidecar, so refs survive a
// restart.
type DiskStore struct {
	dir     string
	maxSize int64
	clock   clockwork.Clock

	mu    sync.RWMutex
	files map[string]*diskMeta
}

type diskMeta struct {
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewDiskStore creates dir if needed. maxSize 0 means no limit.
func NewDiskStore(dir string, maxSize int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.New(errors.CodeUploadStore).WithDetail(dir).Wrap(err)
	}
	return &DiskStore{
		dir:     dir,
		maxSize: maxSize,
		clock:   clockwork.NewRealClock(),
		files:   make(map[string]*diskMeta),
	}, nil
}

// WithClock sets the clock used for creation times and Cleanup.
func (s *DiskStore) WithClock(c clockwork.Clock) *DiskStore {
	s.clock = c
	return s
}

// Save implements Store.
func (s *DiskStore) Save(ctx context.Context, name, contentType string, size int64, r io.Reader) (string, error) {
	if s.maxSize > 0 && size > s.maxSize {
		return "", ErrTooLarge
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ref := uuid.NewString()
	path := s.dataPath(ref)
	f, err := os.Create(path)
	if err != nil {
		return "", errors.New(errors.CodeUploadStore).Wrap(err)
	}
	written, err := limitCopy(f, r, s.maxSize)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return "", err
	}

	meta := &diskMeta{
		Name:        name,
		ContentType: contentType,
		Size:        written,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.saveMeta(ref, meta); err != nil {
		os.Remove(path)
		return "", errors.New(errors.CodeUploadStore).Wrap(err)
	}

	s.mu.Lock()
	s.files[ref] = meta
	s.mu.Unlock()
	return ref, nil
}

// Claim implements Store. The data file is deleted when the returned
// reader is closed.
func (s *DiskStore) Claim(ctx context.Context, ref string) (*File, error) {
	if !validRef(ref) {
		return nil, ErrNotFound
	}
	s.mu.Lock()
	meta, ok := s.files[ref]
	delete(s.files, ref)
	s.mu.Unlock()

	if !ok {
		var err error
		if meta, err = s.loadMeta(ref); err != nil {
			return nil, ErrNotFound
		}
	}

	path := s.dataPath(ref)
	f, err := os.Open(path)
	if err != nil {
		return nil, ErrNotFound
	}
	return &File{
		Ref:         ref,
		Name:        meta.Name,
		ContentType: meta.ContentType,
		Size:        meta.Size,
		Path:        path,
		Reader:      &deleteOnClose{File: f, paths: []string{path, s.metaPath(ref)}},
	}, nil
}

// Cleanup implements Store. It also removes orphaned files left in dir.
func (s *DiskStore) Cleanup(ctx context.Context, maxAge time.Duration) error {
	cutoff := s.clock.Now().Add(-maxAge)

	s.mu.Lock()
	for ref, meta := range s.files {
		if meta.CreatedAt.Before(cutoff) {
			delete(s.files, ref)
		}
	}
	s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return errors.New(errors.CodeUploadStore).Wrap(err)
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			continue
		}
		ref := strings.TrimSuffix(entry.Name(), ".meta")
		created, ok := s.createdAt(ref)
		if !ok {
			info, err := entry.Info()
			if err != nil {
				continue
			}
			created = info.ModTime()
		}
		if created.Before(cutoff) {
			os.Remove(filepath.Join(s.dir, entry.Name()))
		}
	}
	return nil
}

func (s *DiskStore) createdAt(ref string) (time.Time, bool) {
	s.mu.RLock()
	meta, ok := s.files[ref]
	s.mu.RUnlock()
	if ok {
		return meta.CreatedAt, true
	}
	if meta, err := s.loadMeta(ref); err == nil {
		return meta.CreatedAt, true
	}
	return time.Time{}, false
}

func (s *DiskStore) dataPath(ref string) string {
	return filepath.Join(s.dir, ref)
}

func (s *DiskStore) metaPath(ref string) string {
	return filepath.Join(s.dir, ref+".meta")
}

func (s *DiskStore) saveMeta(ref string, meta *diskMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return os.WriteFile(s.metaPath(ref), data, 0644)
}

func (s *DiskStore) loadMeta(ref string) (*diskMeta, error) {
	data, err := os.ReadFile(s.metaPath(ref))
	if err != nil {
		return nil, err
	}
	var meta diskMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// validRef rejects anything that is not a uuid, which also keeps refs
// from escaping dir.
func validRef(ref string) bool {
	_, err := uuid.Parse(ref)
	return err == nil && !strings.ContainsAny(ref, `/\`)
}

type deleteOnClose struct {
	*os.File
	paths []string
}

func (r *deleteOnClose) Close() error {
	err := r.File.Close()
	for _, p := range r.paths {
		os.Remove(p)
	}
	return err
}
