package otpkey

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrymomot/ykauth/pkg/logger"
	"github.com/dmitrymomot/ykauth/pkg/modhex"
)

// DefaultConfigDir is used when NewManager receives an empty directory.
const DefaultConfigDir = "/var/lib/ykauth/keys"

// AttemptLimiter throttles failed verifications per public id.
type AttemptLimiter interface {
	// Allowed reports whether another attempt may be made for key.
	Allowed(ctx context.Context, key string) (bool, error)
	// Failed records a rejected attempt.
	Failed(ctx context.Context, key string) error
	// Succeeded clears the failure history of key.
	Succeeded(ctx context.Context, key string) error
}

// Result describes the outcome of Manager.Verify.
type Result struct {
	PublicID string // hex public id taken from the OTP prefix
	Valid    bool
	SysUser  string // system account of the key, set when Valid
}

// Manager owns a key directory and the configurations stored in it.
type Manager struct {
	dir       string
	log       *slog.Logger
	decrypter Decrypter
	locker    Locker
	limiter   AttemptLimiter

	mu         sync.RWMutex
	configs    map[*KeyConfig]struct{}
	byPublicID map[string]*KeyConfig
	byFilename map[string]*KeyConfig
}

type Option func(*Manager)

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithDecrypter sets the token cipher. Verification fails with
// ErrNoDecrypter without one.
func WithDecrypter(d Decrypter) Option {
	return func(m *Manager) { m.decrypter = d }
}

// WithLocker replaces the in-process MemoryLocker, for example with a lock
// shared by several processes using the same directory.
func WithLocker(l Locker) Option {
	return func(m *Manager) {
		if l != nil {
			m.locker = l
		}
	}
}

func WithLimiter(l AttemptLimiter) Option {
	return func(m *Manager) { m.limiter = l }
}

// NewManager creates the key directory if missing and loads every key file
// found in it. Files that can not be loaded are logged and skipped.
func NewManager(dir string, opts ...Option) (*Manager, error) {
	if dir == "" {
		dir = DefaultConfigDir
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Join(ErrNoStorageAvailable, err)
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, errors.Join(ErrNoStorageAvailable, err)
	}

	m := &Manager{
		dir:        abs,
		log:        logger.Discard(),
		locker:     NewMemoryLocker(),
		configs:    make(map[*KeyConfig]struct{}),
		byPublicID: make(map[string]*KeyConfig),
		byFilename: make(map[string]*KeyConfig),
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := m.scan(); err != nil {
		return nil, err
	}
	return m, nil
}

// ConfigDir returns the absolute key directory.
func (m *Manager) ConfigDir() string {
	return m.dir
}

func (m *Manager) scan() error {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return errors.Join(ErrNoStorageAvailable, err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != fileExt {
			continue
		}
		if _, err := m.OpenConfig(name); err != nil {
			m.log.Warn("skipping key file", logger.Filename(name), logger.Error(err))
		}
	}
	m.log.Debug("key directory loaded", slog.String("dir", m.dir), slog.Int("keys", m.count()))
	return nil
}

// NewConfig registers an empty configuration. Its filename is generated
// on first save, or earlier by GenerateFilename.
func (m *Manager) NewConfig() *KeyConfig {
	c := &KeyConfig{manager: m}
	m.mu.Lock()
	m.configs[c] = struct{}{}
	m.mu.Unlock()
	return c
}

// OpenConfig loads the key file name, resolved against the key directory
// when relative. A file that is already open returns the same instance.
func (m *Manager) OpenConfig(name string) (*KeyConfig, error) {
	path := m.resolve(name)

	m.mu.RLock()
	c, ok := m.byFilename[path]
	m.mu.RUnlock()
	if ok {
		return c, nil
	}

	c = m.NewConfig()
	if err := c.SetFilename(path); err != nil {
		m.forget(c)
		m.mu.RLock()
		existing, ok := m.byFilename[path]
		m.mu.RUnlock()
		if ok {
			return existing, nil
		}
		return nil, err
	}
	if err := c.Load(); err != nil {
		m.forget(c)
		return nil, err
	}
	return c, nil
}

// GetOrCreateConfig returns the configuration with the given hex public id,
// registering a new unsaved one if none exists.
func (m *Manager) GetOrCreateConfig(publicID string) (*KeyConfig, error) {
	id, err := normalizeHexID(publicID, "public id")
	if err != nil {
		return nil, err
	}
	if c, err := m.Lookup(id); err == nil {
		return c, nil
	}

	c := m.NewConfig()
	if err := c.SetPublicID(id); err != nil {
		m.forget(c)
		// lost a race against another creator
		if errors.Is(err, ErrDuplicatePublicID) {
			return m.Lookup(id)
		}
		return nil, err
	}
	return c, nil
}

// Lookup returns the configuration with the given hex public id.
func (m *Manager) Lookup(publicID string) (*KeyConfig, error) {
	id := strings.ToLower(strings.TrimSpace(publicID))
	m.mu.RLock()
	c, ok := m.byPublicID[id]
	m.mu.RUnlock()
	if !ok || id == "" {
		return nil, errors.Join(ErrConfigNotFound, fmt.Errorf("public id %q", publicID))
	}
	return c, nil
}

// List returns all registered configurations ordered by public id and
// filename.
func (m *Manager) List() []*KeyConfig {
	m.mu.RLock()
	list := make([]*KeyConfig, 0, len(m.configs))
	for c := range m.configs {
		list = append(list, c)
	}
	m.mu.RUnlock()

	type entry struct {
		cfg           *KeyConfig
		pub, filename string
	}
	entries := make([]entry, len(list))
	for i, c := range list {
		entries[i] = entry{cfg: c, pub: c.PublicID(), filename: c.Filename()}
	}
	slices.SortFunc(entries, func(a, b entry) int {
		return cmp.Or(cmp.Compare(a.pub, b.pub), cmp.Compare(a.filename, b.filename))
	})
	for i, e := range entries {
		list[i] = e.cfg
	}
	return list
}

// DeleteConfig removes the key file and forgets the configuration.
func (m *Manager) DeleteConfig(publicID string) error {
	c, err := m.Lookup(publicID)
	if err != nil {
		return err
	}

	unlock, err := m.locker.Lock(context.Background(), c.lockKey())
	if err != nil {
		return errors.Join(ErrLockFailed, err)
	}
	defer unlock()

	if name := c.Filename(); name != "" {
		if err := os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errors.Join(ErrIO, err)
		}
	}
	m.forget(c)
	m.log.Info("key deleted", logger.PublicID(c.PublicIDModhex()), logger.Filename(c.Filename()))
	return nil
}

// Verify routes otp to the key named by its public id prefix and checks it.
// Unknown keys produce an invalid result, not an error.
func (m *Manager) Verify(ctx context.Context, otp string) (Result, error) {
	start := time.Now()
	otp = strings.TrimSpace(otp)
	if len(otp) < CiphertextLen || len(otp) > CiphertextLen+MaxPublicIDLen*2 {
		return Result{}, errors.Join(ErrMalformedOtp, fmt.Errorf("length %d", len(otp)))
	}
	prefix := otp[:len(otp)-CiphertextLen]
	publicID, err := modhex.Decode(prefix)
	if err != nil {
		return Result{}, errors.Join(ErrMalformedOtp, err)
	}
	res := Result{PublicID: publicID}

	if m.limiter != nil {
		ok, err := m.limiter.Allowed(ctx, publicID)
		if err != nil {
			return res, err
		}
		if !ok {
			m.log.WarnContext(ctx, "verification throttled", logger.PublicID(prefix))
			return res, ErrTooManyAttempts
		}
	}

	c, err := m.Lookup(publicID)
	if err != nil {
		m.log.DebugContext(ctx, "otp rejected", logger.PublicID(prefix), logger.Reason(err))
		return res, m.recordFailure(ctx, publicID)
	}

	ok, err := c.CheckOtpContext(ctx, otp)
	if errors.Is(err, ErrConfigNotFound) {
		m.log.DebugContext(ctx, "otp rejected", logger.PublicID(prefix), logger.Reason(err))
		return res, m.recordFailure(ctx, publicID)
	}
	if err != nil {
		return res, err
	}
	if !ok {
		return res, m.recordFailure(ctx, publicID)
	}

	res.Valid = true
	res.SysUser = c.SysUser()
	if m.limiter != nil {
		if err := m.limiter.Succeeded(ctx, publicID); err != nil {
			m.log.WarnContext(ctx, "failed to reset attempt limiter", logger.PublicID(prefix), logger.Error(err))
		}
	}
	tok := c.Token()
	m.log.InfoContext(ctx, "otp accepted",
		logger.PublicID(prefix),
		logger.SysUser(res.SysUser),
		logger.Counter(tok.Counter(), tok.Use),
		logger.Duration(time.Since(start)),
	)
	return res, nil
}

func (m *Manager) recordFailure(ctx context.Context, publicID string) error {
	if m.limiter == nil {
		return nil
	}
	return m.limiter.Failed(ctx, publicID)
}

func (m *Manager) resolve(name string) string {
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(m.dir, name)
}

func (m *Manager) count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.configs)
}

// claimPublicID moves the index entry of c from old to id.
func (m *Manager) claimPublicID(c *KeyConfig, old, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id != "" {
		if other, ok := m.byPublicID[id]; ok && other != c {
			return errors.Join(ErrDuplicatePublicID, fmt.Errorf("public id %q", id))
		}
	}
	if old != "" && m.byPublicID[old] == c {
		delete(m.byPublicID, old)
	}
	if id != "" {
		m.byPublicID[id] = c
	}
	return nil
}

// reserveFilename moves the filename reservation of c from old to path.
// It returns false when path belongs to another configuration.
func (m *Manager) reserveFilename(c *KeyConfig, old, path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if other, ok := m.byFilename[path]; ok && other != c {
		return false
	}
	if old != "" && m.byFilename[old] == c {
		delete(m.byFilename, old)
	}
	m.byFilename[path] = c
	return true
}

// forget drops c from the indexes and retires it, so handles still held by
// callers can not write its file back.
func (m *Manager) forget(c *KeyConfig) {
	c.mu.Lock()
	c.deleted = true
	c.persisted = false
	pub, name := c.publicID, c.filename
	c.mu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.configs, c)
	if m.byPublicID[pub] == c {
		delete(m.byPublicID, pub)
	}
	if m.byFilename[name] == c {
		delete(m.byFilename, name)
	}
}
