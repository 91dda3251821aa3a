package csvfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/warp/inquiry-desk/inquiry"
)

const storeExt = ".csv"

// RecordFiles implements inquiry.RecordStore with one CSV file per period.
type RecordFiles struct {
	dir string
	mu  sync.RWMutex
}

// NewRecordFiles returns a store rooted at dir, creating it if needed.
func NewRecordFiles(dir string) (*RecordFiles, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &RecordFiles{dir: dir}, nil
}

// Path returns the file backing a period store.
func (s *RecordFiles) Path(id inquiry.PeriodID) string {
	return filepath.Join(s.dir, string(id)+storeExt)
}

func (s *RecordFiles) Load(_ context.Context, id inquiry.PeriodID) ([]inquiry.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(s.Path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return []inquiry.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open period store %s: %w", id, err)
	}
	defer f.Close()

	records, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode period store %s: %w", id, err)
	}
	return records, nil
}

func (s *RecordFiles) Persist(_ context.Context, id inquiry.PeriodID, records []inquiry.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return writeFileAtomic(s.Path(id), func(w io.Writer) error {
		return Encode(w, records)
	})
}

func (s *RecordFiles) Delete(_ context.Context, id inquiry.PeriodID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.Path(id))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete period store %s: %w", id, err)
	}
	return nil
}

func (s *RecordFiles) Exists(_ context.Context, id inquiry.PeriodID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.Path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns the period stores present in the data directory, sorted.
func (s *RecordFiles) List(_ context.Context) ([]inquiry.PeriodID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list data directory: %w", err)
	}

	var ids []inquiry.PeriodID
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "db_") || !strings.HasSuffix(name, storeExt) {
			continue
		}
		ids = append(ids, inquiry.PeriodID(strings.TrimSuffix(name, storeExt)))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
