package persist

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// EditorRow is an API key holder allowed to use the map editing endpoints.
type EditorRow struct {
	Name       string
	KeyHash    string
	CanEdit    bool
	CreatedAt  time.Time
	LastActive *time.Time
}

const (
	// verifiedKeyTTL bounds how long a bcrypt-verified key skips the compare.
	verifiedKeyTTL = 5 * time.Minute
	// lastActiveEvery throttles the last_active write per editor.
	lastActiveEvery = time.Minute
)

type EditorRepo struct {
	db   *DB
	keys *keyCache
}

func NewEditorRepo(db *DB) *EditorRepo {
	return &EditorRepo{db: db, keys: newKeyCache(time.Now)}
}

func (r *EditorRepo) Load(ctx context.Context, name string) (*EditorRow, error) {
	row := &EditorRow{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT name, key_hash, can_edit, created_at, last_active
		 FROM editors WHERE name = $1`, name,
	).Scan(&row.Name, &row.KeyHash, &row.CanEdit, &row.CreatedAt, &row.LastActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Create stores a new editor with a bcrypt hash of rawKey.
func (r *EditorRepo) Create(ctx context.Context, name, rawKey string, canEdit bool) (*EditorRow, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	row := &EditorRow{
		Name:      name,
		KeyHash:   string(hash),
		CanEdit:   canEdit,
		CreatedAt: time.Now(),
	}
	_, err = r.db.Pool.Exec(ctx,
		`INSERT INTO editors (name, key_hash, can_edit) VALUES ($1, $2, $3)`,
		row.Name, row.KeyHash, row.CanEdit,
	)
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Authenticate returns the editor when secret matches, nil when it does not or the
// editor is unknown. The row is always reloaded so a rotated key or revoked edit
// right applies immediately; only the bcrypt compare is cached.
func (r *EditorRepo) Authenticate(ctx context.Context, name, secret string) (*EditorRow, error) {
	row, err := r.Load(ctx, name)
	if err != nil || row == nil {
		return nil, err
	}
	if !r.keys.verified(name, row.KeyHash, secret) {
		if !ValidateKey(row.KeyHash, secret) {
			return nil, nil
		}
		r.keys.remember(name, row.KeyHash, secret)
	}
	if r.keys.touch(name) {
		if err := r.UpdateLastActive(ctx, name); err != nil {
			r.db.log.Warn("editor last_active update failed", zap.String("name", name), zap.Error(err))
		}
	}
	return row, nil
}

func ValidateKey(hash string, rawKey string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(rawKey)) == nil
}

func (r *EditorRepo) UpdateLastActive(ctx context.Context, name string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE editors SET last_active = NOW() WHERE name = $1`, name,
	)
	return err
}

type verifiedKey struct {
	hash   string
	digest [sha256.Size]byte
	at     time.Time
}

// keyCache remembers keys that passed bcrypt recently and when each editor's
// last_active was last written.
type keyCache struct {
	mu      sync.Mutex
	now     func() time.Time
	keys    map[string]verifiedKey
	touched map[string]time.Time
}

func newKeyCache(now func() time.Time) *keyCache {
	return &keyCache{
		now:     now,
		keys:    make(map[string]verifiedKey),
		touched: make(map[string]time.Time),
	}
}

func (c *keyCache) verified(name, hash, secret string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	k, ok := c.keys[name]
	if !ok || k.hash != hash || c.now().Sub(k.at) >= verifiedKeyTTL {
		return false
	}
	d := sha256.Sum256([]byte(secret))
	return subtle.ConstantTimeCompare(d[:], k.digest[:]) == 1
}

func (c *keyCache) remember(name, hash, secret string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys[name] = verifiedKey{hash: hash, digest: sha256.Sum256([]byte(secret)), at: c.now()}
}

// touch reports whether last_active is due for name and, if so, marks it written.
func (c *keyCache) touch(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if last, ok := c.touched[name]; ok && now.Sub(last) < lastActiveEvery {
		return false
	}
	c.touched[name] = now
	return true
}
