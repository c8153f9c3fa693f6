package otpkey

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrymomot/ykauth/pkg/logger"
	"github.com/dmitrymomot/ykauth/pkg/modhex"
	"github.com/dmitrymomot/ykauth/pkg/yubitoken"
)

// CiphertextLen is the number of modhex characters carrying the encrypted
// token at the end of every OTP.
const CiphertextLen = yubitoken.Size * 2

// Decrypter recovers the plaintext token from the 16-byte ciphertext of an
// OTP using the 16-byte key secret.
type Decrypter interface {
	Decrypt(ciphertext, key []byte) ([]byte, error)
}

// CheckOtp verifies candidate against this key with a background context.
// See CheckOtpContext.
func (c *KeyConfig) CheckOtp(candidate string) (bool, error) {
	return c.CheckOtpContext(context.Background(), candidate)
}

// CheckOtpContext verifies candidate against this key. On success the token
// counters are ratcheted forward and saved before true is returned, so the
// same OTP is accepted exactly once.
//
// A wrong CRC, a foreign private id or a replayed token yield false with a
// nil error. Malformed input, a missing decrypter and persistence failures
// are returned as errors. The context only bounds waiting for the key lock.
func (c *KeyConfig) CheckOtpContext(ctx context.Context, candidate string) (bool, error) {
	err := c.verify(ctx, candidate)
	switch {
	case err == nil:
		return true, nil
	case isRejection(err):
		c.manager.log.DebugContext(ctx, "otp rejected",
			logger.PublicID(c.PublicIDModhex()),
			logger.Reason(err),
		)
		return false, nil
	default:
		return false, err
	}
}

func (c *KeyConfig) verify(ctx context.Context, candidate string) error {
	m := c.manager
	if m == nil {
		return errors.Join(ErrNoStorageAvailable, errors.New("configuration has no manager"))
	}
	if m.decrypter == nil {
		return ErrNoDecrypter
	}

	candidate = strings.TrimSpace(candidate)
	prefix := c.PublicIDModhex()
	ciphertext, err := splitOtp(candidate, prefix)
	if err != nil {
		return err
	}

	unlock, err := m.locker.Lock(ctx, c.lockKey())
	if err != nil {
		return errors.Join(ErrLockFailed, err)
	}
	defer unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// the key may have been deleted while waiting for the lock
	if err := c.attached(); err != nil {
		return err
	}
	// the public id may have changed while waiting for the lock
	if c.publicIDModhex() != prefix {
		return errors.Join(ErrMalformedOtp, errors.New("public id does not match"))
	}

	if err := c.refreshRatchet(); err != nil {
		return err
	}

	plain, err := m.decrypter.Decrypt(ciphertext, c.secret[:])
	if err != nil {
		return fmt.Errorf("decrypt token: %w", err)
	}
	tok, err := yubitoken.Decode(plain)
	if err != nil {
		return errors.Join(ErrMalformedOtp, err)
	}

	if !yubitoken.IsCrcOk(tok) {
		return ErrCrcMismatch
	}
	if tok.UID != c.token.UID {
		return ErrIdentityMismatch
	}
	if !isNewer(tok, c.token) {
		return ErrReplayDetected
	}

	prev, prevChanged := c.token, c.changed
	c.token.Ctr = tok.Ctr
	c.token.Use = tok.Use
	c.token.Tstpl = tok.Tstpl
	c.token.Tstph = tok.Tstph
	c.token.Rnd = tok.Rnd
	c.token.Crc = tok.Crc
	c.changed = true

	if err := c.save(); err != nil {
		c.token, c.changed = prev, prevChanged
		m.log.ErrorContext(ctx, "failed to persist ratchet",
			logger.PublicID(prefix),
			logger.Filename(c.filename),
			logger.Error(err),
		)
		return err
	}
	return nil
}

// refreshRatchet adopts the persisted counters when another process sharing
// the key directory advanced them past the in-memory state.
func (c *KeyConfig) refreshRatchet() error {
	if !c.persisted {
		return nil
	}
	stored, ok, err := c.readPersistedToken()
	if err != nil || !ok {
		return err
	}
	if isNewer(stored, c.token) {
		uid := c.token.UID
		c.token = stored
		c.token.UID = uid
	}
	return nil
}

func (c *KeyConfig) lockKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.publicID != "" {
		return "pub:" + c.publicID
	}
	if c.filename != "" {
		return "file:" + c.filename
	}
	return fmt.Sprintf("cfg:%p", c)
}

// splitOtp checks the OTP layout and returns the raw ciphertext.
func splitOtp(otp, publicIDModhex string) ([]byte, error) {
	if len(otp) != len(publicIDModhex)+CiphertextLen {
		return nil, errors.Join(ErrMalformedOtp,
			fmt.Errorf("length %d, want %d", len(otp), len(publicIDModhex)+CiphertextLen))
	}
	if !strings.EqualFold(otp[:len(publicIDModhex)], publicIDModhex) {
		return nil, errors.Join(ErrMalformedOtp, errors.New("public id does not match"))
	}
	ciphertext, err := modhex.DecodeBytes(otp[len(publicIDModhex):])
	if err != nil {
		return nil, errors.Join(ErrMalformedOtp, err)
	}
	return ciphertext, nil
}

// isNewer reports whether candidate is strictly ahead of stored: a greater
// (counter, use) pair, or the same counter with a greater timestamp.
func isNewer(candidate, stored yubitoken.Token) bool {
	cc, sc := candidate.Counter(), stored.Counter()
	if cc != sc {
		return cc > sc
	}
	if candidate.Use > stored.Use {
		return true
	}
	return candidate.Timestamp() > stored.Timestamp()
}
