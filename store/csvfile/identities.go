package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/warp/inquiry-desk/inquiry"
)

var identityHeader = []string{"id", "pw", "role"}

// IdentityFile implements inquiry.IdentityStore over a single CSV file.
// The pw column holds whatever the credential service hands it, which is a
// bcrypt hash for every identity written by this program.
type IdentityFile struct {
	path string
	mu   sync.Mutex
}

// NewIdentityFile returns a store backed by path. The file need not exist.
func NewIdentityFile(path string) *IdentityFile {
	return &IdentityFile{path: path}
}

func (s *IdentityFile) LoadIdentities(_ context.Context) ([]inquiry.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, inquiry.ErrStoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open identity file: %w", err)
	}
	defer f.Close()

	header, rows, err := ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read identity file: %w", err)
	}
	if header == nil {
		return nil, fmt.Errorf("identity file %s: %w", s.path, errEmptyTable)
	}

	col := make(map[string]int, len(header))
	for i, h := range header {
		col[h] = i
	}
	for _, h := range identityHeader {
		if _, ok := col[h]; !ok {
			return nil, fmt.Errorf("identity file %s: missing column %q", s.path, h)
		}
	}

	identities := make([]inquiry.Identity, 0, len(rows))
	for n, row := range rows {
		if len(row) < len(header) {
			return nil, fmt.Errorf("identity file %s: row %d is short", s.path, n+2)
		}
		role, ok := inquiry.ParseRole(row[col["role"]])
		if !ok {
			return nil, fmt.Errorf("identity file %s: row %d has unknown role %q", s.path, n+2, row[col["role"]])
		}
		identities = append(identities, inquiry.Identity{
			ID:           row[col["id"]],
			PasswordHash: row[col["pw"]],
			Role:         role,
		})
	}
	return identities, nil
}

func (s *IdentityFile) SaveIdentities(_ context.Context, identities []inquiry.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create identity directory: %w", err)
	}

	return writeFileAtomic(s.path, func(w io.Writer) error {
		if _, err := w.Write(utf8BOM); err != nil {
			return err
		}
		cw := csv.NewWriter(w)
		if err := cw.Write(identityHeader); err != nil {
			return err
		}
		for _, id := range identities {
			if err := cw.Write([]string{id.ID, id.PasswordHash, string(id.Role)}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}
