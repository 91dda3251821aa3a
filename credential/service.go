/*
Package credential authenticates branch staff against the identity set.

PURPOSE:
  Holds the login identities (agent name, password, role). The identity
  set is seeded on first run and afterwards changes only through
  self-service password changes. Identities are never deleted here.

PASSWORD STORAGE:
  Passwords are stored as bcrypt hashes; the salt is embedded per hash.
  bcrypt only takes 72 bytes of input, so longer passwords are first
  reduced to a base64 SHA-256 digest and the hash is stored with a
  "sha256$" prefix. Plain bcrypt hashes keep verifying as before.
  Comparison semantics are exact match after trimming surrounding
  whitespace, the same as a plain string comparison would give a
  legitimate user.

  Identity files written by the earlier system carry plaintext passwords.
  Such rows still authenticate (exact match) and are rewritten as a hash
  on the first successful login.

PERSISTENCE:
  Every mutation writes the entire identity set (full overwrite).

SEE ALSO:
  - inquiry/store.go: IdentityStore interface
  - store/csvfile/identities.go: File-backed implementation
*/
package credential

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/warp/inquiry-desk/inquiry"
)

// Seed is an initial identity with its plaintext password.
type Seed struct {
	ID       string
	Password string
	Role     inquiry.Role
}

// DefaultSeeds is the branch's initial identity set.
var DefaultSeeds = []Seed{
	{ID: "김주용", Password: "1129", Role: inquiry.RoleAdmin},
	{ID: "이지호", Password: "0830", Role: inquiry.RoleAdmin},
	{ID: "배재민", Password: "0116", Role: inquiry.RoleAgent},
	{ID: "김호람", Password: "0403", Role: inquiry.RoleAgent},
	{ID: "김동성", Password: "0917", Role: inquiry.RoleAgent},
	{ID: "홍기웅", Password: "0212", Role: inquiry.RoleAgent},
}

// Service implements the credential store operations.
type Service struct {
	store  inquiry.IdentityStore
	logger *zap.Logger
	seeds  []Seed
	cost   int

	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithSeeds replaces DefaultSeeds.
func WithSeeds(seeds []Seed) Option {
	return func(s *Service) { s.seeds = seeds }
}

// WithCost sets the bcrypt cost. Tests use bcrypt.MinCost.
func WithCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// NewService creates a credential service over store.
func NewService(store inquiry.IdentityStore, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: logger,
		seeds:  DefaultSeeds,
		cost:   bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the identity set keyed by id, seeding it on first run.
// A seed that cannot be persisted is still returned and logged.
func (s *Service) Load(ctx context.Context) (map[string]inquiry.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadLocked(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]inquiry.Identity, len(list))
	for _, id := range list {
		out[id.ID] = id
	}
	return out, nil
}

// Authenticate returns the identity when id exists and password matches.
// Both inputs are trimmed. Any mismatch yields ErrAuthenticationFailed.
func (s *Service) Authenticate(ctx context.Context, id, password string) (inquiry.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadLocked(ctx)
	if err != nil {
		return inquiry.Identity{}, err
	}
	i, err := s.verify(list, id, password)
	if err != nil {
		return inquiry.Identity{}, err
	}

	if !isHash(list[i].PasswordHash) {
		hash, err := s.hash(password)
		if err != nil {
			s.logger.Warn("failed to hash legacy password", zap.String("id", list[i].ID), zap.Error(err))
			return list[i], nil
		}
		list[i].PasswordHash = hash
		if err := s.store.SaveIdentities(ctx, list); err != nil {
			s.logger.Warn("failed to upgrade legacy password", zap.String("id", list[i].ID), zap.Error(err))
		} else {
			s.logger.Info("upgraded legacy password to hash", zap.String("id", list[i].ID))
		}
	}
	return list[i], nil
}

// ChangePassword replaces id's password after verifying oldPassword, then
// persists the whole identity set.
func (s *Service) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadLocked(ctx)
	if err != nil {
		return err
	}
	i, err := s.verify(list, id, oldPassword)
	if err != nil {
		return err
	}
	if strings.TrimSpace(newPassword) == "" {
		return fmt.Errorf("%w: new password is empty", inquiry.ErrInvalidPassword)
	}

	hash, err := s.hash(newPassword)
	if err != nil {
		return err
	}
	list[i].PasswordHash = hash
	if err := s.store.SaveIdentities(ctx, list); err != nil {
		return fmt.Errorf("failed to persist identities: %w", err)
	}
	s.logger.Info("password changed", zap.String("id", list[i].ID))
	return nil
}

// =============================================================================
// INTERNALS
// =============================================================================

func (s *Service) loadLocked(ctx context.Context) ([]inquiry.Identity, error) {
	list, err := s.store.LoadIdentities(ctx)
	if err == nil {
		return list, nil
	}
	if !errors.Is(err, inquiry.ErrStoreNotFound) {
		return nil, fmt.Errorf("failed to load identities: %w", err)
	}

	list = make([]inquiry.Identity, 0, len(s.seeds))
	for _, seed := range s.seeds {
		hash, err := s.hash(seed.Password)
		if err != nil {
			return nil, err
		}
		list = append(list, inquiry.Identity{ID: seed.ID, PasswordHash: hash, Role: seed.Role})
	}
	if err := s.store.SaveIdentities(ctx, list); err != nil {
		s.logger.Error("failed to persist seeded identities", zap.Error(err))
	} else {
		s.logger.Info("seeded identity set", zap.Int("count", len(list)))
	}
	return list, nil
}

func (s *Service) verify(list []inquiry.Identity, id, password string) (int, error) {
	id = strings.TrimSpace(id)
	password = strings.TrimSpace(password)

	for i, ident := range list {
		if ident.ID != id {
			continue
		}
		if matches(ident.PasswordHash, password) {
			return i, nil
		}
		break
	}
	return -1, inquiry.ErrAuthenticationFailed
}

func (s *Service) hash(password string) (string, error) {
	input := []byte(strings.TrimSpace(password))
	prefix := ""
	if len(input) > maxBcryptInput {
		input = prehash(string(input))
		prefix = prehashPrefix
	}
	h, err := bcrypt.GenerateFromPassword(input, s.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return prefix + string(h), nil
}

const (
	maxBcryptInput = 72
	prehashPrefix  = "sha256$"
)

func prehash(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

func matches(stored, password string) bool {
	if h, ok := strings.CutPrefix(stored, prehashPrefix); ok && isBcrypt(h) {
		return bcrypt.CompareHashAndPassword([]byte(h), prehash(password)) == nil
	}
	if isBcrypt(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	return strings.TrimSpace(stored) == password
}

// isHash reports whether stored is a hash this service wrote, with or
// without the pre-hash prefix.
func isHash(stored string) bool {
	return isBcrypt(strings.TrimPrefix(stored, prehashPrefix))
}

// isBcrypt reports whether h looks like a bcrypt hash ($2a$, $2b$, $2y$).
func isBcrypt(h string) bool {
	_, err := bcrypt.Cost([]byte(h))
	return err == nil
}
