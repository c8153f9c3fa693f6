package otpkey

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/dmitrymomot/ykauth/pkg/modhex"
	"github.com/dmitrymomot/ykauth/pkg/yubitoken"
)

const (
	SecretKeySize  = 16   // AES-128 secret in bytes
	MaxPublicIDLen = 6    // Public id limit in raw bytes
	MaxSysUserLen  = 1024 // System user name limit in characters
)

// KeyConfig is the stored configuration of one Yubikey: its identities,
// secret, metadata and the last accepted token. All methods are safe for
// concurrent use.
//
// A KeyConfig belongs to the Manager that created it through NewConfig,
// OpenConfig or GetOrCreateConfig. The zero value is not attached to a
// directory: storage and verification fail with ErrNoStorageAvailable.
// Once the key is deleted they fail with ErrConfigNotFound.
type KeyConfig struct {
	manager *Manager

	mu          sync.RWMutex
	publicID    string // lower case hex
	secret      [SecretKeySize]byte
	token       yubitoken.Token // token.UID holds the private id
	description string
	sysUser     string
	filename    string
	persisted   bool // filename was established by a load or save
	changed     bool
	deleted     bool
}

func (c *KeyConfig) PublicID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.publicID
}

// PublicIDModhex returns the public id the way it prefixes an OTP.
func (c *KeyConfig) PublicIDModhex() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.publicIDModhex()
}

func (c *KeyConfig) publicIDModhex() string {
	// publicID is validated hex, encoding can not fail
	m, _ := modhex.Encode(c.publicID)
	return m
}

// SetPublicID sets the public id from its hex form. At most 6 bytes are
// allowed; the empty string clears it. The id must not be used by another
// configuration of the same Manager.
func (c *KeyConfig) SetPublicID(id string) error {
	id, err := normalizeHexID(id, "public id")
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if id == c.publicID {
		return nil
	}
	if err := c.attached(); err != nil {
		return err
	}
	if err := c.manager.claimPublicID(c, c.publicID, id); err != nil {
		return err
	}
	c.publicID = id
	c.changed = true
	return nil
}

// PrivateID returns the private id as 12 hex characters.
func (c *KeyConfig) PrivateID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token.UIDHex()
}

// SetPrivateID sets the private id from hex. Ids shorter than 6 bytes are
// padded with zero bytes on the right.
func (c *KeyConfig) SetPrivateID(id string) error {
	uid, err := parsePrivateID(id)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if uid != c.token.UID {
		c.token.UID = uid
		c.changed = true
	}
	return nil
}

// SecretKey returns the secret as 32 hex characters.
func (c *KeyConfig) SecretKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return hex.EncodeToString(c.secret[:])
}

func (c *KeyConfig) SecretKeyBytes() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return bytes.Clone(c.secret[:])
}

// SetSecretKey sets the AES secret from exactly 32 hex characters.
func (c *KeyConfig) SetSecretKey(key string) error {
	secret, err := parseSecretKey(key)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if secret != c.secret {
		c.secret = secret
		c.changed = true
	}
	return nil
}

func (c *KeyConfig) Description() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.description
}

// SetDescription sets the free text description. It is never interpreted.
func (c *KeyConfig) SetDescription(desc string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if desc != c.description {
		c.description = desc
		c.changed = true
	}
}

func (c *KeyConfig) SysUser() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sysUser
}

// SetSysUser sets the operating system account the key belongs to.
func (c *KeyConfig) SetSysUser(name string) error {
	if n := utf8.RuneCountInString(name); n > MaxSysUserLen {
		return errors.Join(ErrInvalidFormat, fmt.Errorf("system user has %d characters, limit is %d", n, MaxSysUserLen))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if name != c.sysUser {
		c.sysUser = name
		c.changed = true
	}
	return nil
}

// Counter returns the stored session counter including its flag bit.
func (c *KeyConfig) Counter() uint16 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token.Ctr
}

func (c *KeyConfig) SetCounter(ctr uint16) {
	c.updateToken(func(t *yubitoken.Token) { t.Ctr = ctr })
}

func (c *KeyConfig) UseCounter() uint8 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token.Use
}

func (c *KeyConfig) SetUseCounter(use uint8) {
	c.updateToken(func(t *yubitoken.Token) { t.Use = use })
}

func (c *KeyConfig) Random() uint16 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token.Rnd
}

func (c *KeyConfig) SetRandom(rnd uint16) {
	c.updateToken(func(t *yubitoken.Token) { t.Rnd = rnd })
}

func (c *KeyConfig) Crc() uint16 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token.Crc
}

func (c *KeyConfig) SetCrc(crc uint16) {
	c.updateToken(func(t *yubitoken.Token) { t.Crc = crc })
}

// Timestamp returns the stored 24-bit token timestamp.
func (c *KeyConfig) Timestamp() uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token.Timestamp()
}

func (c *KeyConfig) SetTimestamp(ts uint32) {
	c.updateToken(func(t *yubitoken.Token) { t.SetTimestamp(ts) })
}

// Token returns a copy of the stored token.
func (c *KeyConfig) Token() yubitoken.Token {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the stored token, private id included.
func (c *KeyConfig) SetToken(t yubitoken.Token) {
	c.updateToken(func(cur *yubitoken.Token) { *cur = t })
}

// ComputeCrc stores the CRC of the current token and returns it.
func (c *KeyConfig) ComputeCrc() uint16 {
	c.updateToken(func(t *yubitoken.Token) { t.Seal() })
	return c.Crc()
}

// TokenJSON renders the live token for diagnostics.
func (c *KeyConfig) TokenJSON() string {
	return c.Token().JSON()
}

// Filename returns the path of the backing file, empty until one is
// generated or set.
func (c *KeyConfig) Filename() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filename
}

// Changed reports whether the configuration has unsaved modifications.
func (c *KeyConfig) Changed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.changed
}

// Equal compares every persisted field of two configurations.
func (c *KeyConfig) Equal(other *KeyConfig) bool {
	if c == other {
		return true
	}
	if c == nil || other == nil {
		return false
	}
	a, b := c.snapshot(), other.snapshot()
	return a == b
}

// attached reports why the configuration can not reach its Manager, if it
// can not. c.mu must be held.
func (c *KeyConfig) attached() error {
	if c.manager == nil {
		return errors.Join(ErrNoStorageAvailable, errors.New("configuration has no manager"))
	}
	if c.deleted {
		return errors.Join(ErrConfigNotFound, errors.New("configuration was deleted"))
	}
	return nil
}

func (c *KeyConfig) updateToken(fn func(*yubitoken.Token)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.token
	fn(&next)
	if next != c.token {
		c.token = next
		c.changed = true
	}
}

// normalizeHexID validates a hex encoded id of at most MaxPublicIDLen bytes
// and returns it in lower case.
func normalizeHexID(id, what string) (string, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if len(id) > MaxPublicIDLen*2 {
		return "", errors.Join(ErrInvalidFormat, fmt.Errorf("%s longer than %d bytes", what, MaxPublicIDLen))
	}
	if _, err := hex.DecodeString(id); err != nil {
		return "", errors.Join(ErrInvalidFormat, fmt.Errorf("%s is not hex", what), err)
	}
	return id, nil
}

func parsePrivateID(id string) ([yubitoken.UIDSize]byte, error) {
	var uid [yubitoken.UIDSize]byte
	id, err := normalizeHexID(id, "private id")
	if err != nil {
		return uid, err
	}
	raw, _ := hex.DecodeString(id)
	copy(uid[:], raw)
	return uid, nil
}

func parseSecretKey(key string) ([SecretKeySize]byte, error) {
	var secret [SecretKeySize]byte
	key = strings.TrimSpace(key)
	if len(key) != SecretKeySize*2 {
		return secret, errors.Join(ErrInvalidFormat, fmt.Errorf("secret key must be %d hex characters, got %d", SecretKeySize*2, len(key)))
	}
	raw, err := hex.DecodeString(key)
	if err != nil {
		return secret, errors.Join(ErrInvalidFormat, errors.New("secret key is not hex"), err)
	}
	copy(secret[:], raw)
	return secret, nil
}
