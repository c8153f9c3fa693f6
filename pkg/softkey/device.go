package softkey

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/dmitrymomot/ykauth/pkg/modhex"
	"github.com/dmitrymomot/ykauth/pkg/otpcipher"
	"github.com/dmitrymomot/ykauth/pkg/otpkey"
	"github.com/dmitrymomot/ykauth/pkg/yubitoken"
)

// Encrypter is the inverse of otpkey.Decrypter.
type Encrypter interface {
	Encrypt(plaintext, key []byte) ([]byte, error)
}

// Device is a software Yubikey. It is safe for concurrent use; every OTP it
// returns is strictly newer than the previous one.
type Device struct {
	mu     sync.Mutex
	prefix string // modhex public id
	secret []byte
	token  yubitoken.Token
	enc    Encrypter
	random func() uint16
}

type Option func(*Device)

// WithEncrypter replaces the default AES-128 cipher.
func WithEncrypter(e Encrypter) Option {
	return func(d *Device) {
		if e != nil {
			d.enc = e
		}
	}
}

// WithRandom sets the source of the token random field.
func WithRandom(fn func() uint16) Option {
	return func(d *Device) {
		if fn != nil {
			d.random = fn
		}
	}
}

// WithToken sets the state the device continues from. The private id of tok
// is replaced by the one given to New.
func WithToken(tok yubitoken.Token) Option {
	return func(d *Device) {
		uid := d.token.UID
		d.token = tok
		d.token.UID = uid
	}
}

// New creates a device from hex encoded identities and a 16 byte secret.
func New(publicID, privateID string, secret []byte, opts ...Option) (*Device, error) {
	pub, err := modhex.Encode(strings.TrimSpace(publicID))
	if err != nil {
		return nil, errors.Join(ErrInvalidIdentity, err)
	}
	if len(pub) > otpkey.MaxPublicIDLen*2 {
		return nil, errors.Join(ErrInvalidIdentity, fmt.Errorf("public id longer than %d bytes", otpkey.MaxPublicIDLen))
	}
	uid, err := hex.DecodeString(strings.TrimSpace(privateID))
	if err != nil {
		return nil, errors.Join(ErrInvalidIdentity, err)
	}
	if len(uid) > yubitoken.UIDSize {
		return nil, errors.Join(ErrInvalidIdentity, fmt.Errorf("private id longer than %d bytes", yubitoken.UIDSize))
	}
	if len(secret) != otpcipher.KeySize {
		return nil, errors.Join(ErrInvalidSecret, fmt.Errorf("got %d bytes, want %d", len(secret), otpcipher.KeySize))
	}

	d := &Device{
		prefix: pub,
		secret: append([]byte(nil), secret...),
		enc:    otpcipher.AES{},
		random: func() uint16 { return uint16(rand.Uint32()) },
	}
	copy(d.token.UID[:], uid)
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// FromConfig creates a device that continues from the last token accepted
// for c, so its first OTP is accepted by c.
func FromConfig(c *otpkey.KeyConfig, opts ...Option) (*Device, error) {
	tok := c.Token()
	opts = append([]Option{WithToken(tok)}, opts...)
	return New(c.PublicID(), tok.UIDHex(), c.SecretKeyBytes(), opts...)
}

// PublicID returns the modhex prefix of every OTP of the device.
func (d *Device) PublicID() string {
	return d.prefix
}

// Token returns the token used for the last OTP.
func (d *Device) Token() yubitoken.Token {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.token
}

// NextOTP advances the device state and returns the new OTP.
func (d *Device) NextOTP() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	next := d.token
	if next.Use == 0xff {
		next = nextSession(next)
	} else {
		next.Use++
	}
	next.SetTimestamp(next.Timestamp() + 1)
	next.Rnd = d.random()
	next.Seal()

	ciphertext, err := d.enc.Encrypt(next.Bytes(), d.secret)
	if err != nil {
		return "", errors.Join(ErrEncryptFailed, err)
	}
	d.token = next
	return d.prefix + modhex.EncodeBytes(ciphertext), nil
}

// Replug starts a new session the way inserting the key does: the session
// counter is incremented and the use counter restarts at zero.
func (d *Device) Replug() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.token = nextSession(d.token)
}

func nextSession(t yubitoken.Token) yubitoken.Token {
	flag := t.Ctr & yubitoken.CounterFlag
	t.Ctr = flag | ((t.Counter() + 1) &^ yubitoken.CounterFlag)
	t.Use = 0
	return t
}
