package otpkey

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/ykauth/pkg/yubitoken"
)

const (
	fileExt  = ".json"
	filePerm = 0o600
)

// record is the on-disk form of a KeyConfig.
type record struct {
	PublicID      string `json:"publicId"`
	PrivateID     string `json:"privateId"`
	SecretKey     string `json:"secretKey"`
	Description   string `json:"description"`
	SysUser       string `json:"sysUser"`
	Counter       uint16 `json:"counter"`
	UseCounter    uint8  `json:"useCounter"`
	Random        uint16 `json:"random"`
	TimestampLow  uint16 `json:"timestampLow"`
	TimestampHigh uint8  `json:"timestampHigh"`
	Crc           uint16 `json:"crc"`
}

// rawRecord detects missing required fields while decoding.
type rawRecord struct {
	PublicID      string  `json:"publicId"`
	PrivateID     *string `json:"privateId"`
	SecretKey     *string `json:"secretKey"`
	Description   string  `json:"description"`
	SysUser       string  `json:"sysUser"`
	Counter       uint16  `json:"counter"`
	UseCounter    uint8   `json:"useCounter"`
	Random        uint16  `json:"random"`
	TimestampLow  uint16  `json:"timestampLow"`
	TimestampHigh uint8   `json:"timestampHigh"`
	Crc           uint16  `json:"crc"`
}

type decoded struct {
	publicID    string
	secret      [SecretKeySize]byte
	token       yubitoken.Token
	description string
	sysUser     string
}

func (c *KeyConfig) snapshot() record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.record()
}

func (c *KeyConfig) record() record {
	return record{
		PublicID:      c.publicID,
		PrivateID:     c.token.UIDHex(),
		SecretKey:     hex.EncodeToString(c.secret[:]),
		Description:   c.description,
		SysUser:       c.sysUser,
		Counter:       c.token.Ctr,
		UseCounter:    c.token.Use,
		Random:        c.token.Rnd,
		TimestampLow:  c.token.Tstpl,
		TimestampHigh: c.token.Tstph,
		Crc:           c.token.Crc,
	}
}

func decodeRecord(data []byte) (decoded, error) {
	var raw rawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return decoded{}, errors.Join(ErrCorruptConfig, err)
	}
	if raw.PrivateID == nil {
		return decoded{}, errors.Join(ErrCorruptConfig, errors.New("privateId is missing"))
	}
	if raw.SecretKey == nil {
		return decoded{}, errors.Join(ErrCorruptConfig, errors.New("secretKey is missing"))
	}

	publicID, err := normalizeHexID(raw.PublicID, "public id")
	if err != nil {
		return decoded{}, errors.Join(ErrCorruptConfig, err)
	}
	uid, err := parsePrivateID(*raw.PrivateID)
	if err != nil {
		return decoded{}, errors.Join(ErrCorruptConfig, err)
	}
	secret, err := parseSecretKey(*raw.SecretKey)
	if err != nil {
		return decoded{}, errors.Join(ErrCorruptConfig, err)
	}

	return decoded{
		publicID: publicID,
		secret:   secret,
		token: yubitoken.Token{
			UID:   uid,
			Ctr:   raw.Counter,
			Use:   raw.UseCounter,
			Rnd:   raw.Random,
			Tstpl: raw.TimestampLow,
			Tstph: raw.TimestampHigh,
			Crc:   raw.Crc,
		},
		description: raw.Description,
		sysUser:     raw.SysUser,
	}, nil
}

// GenerateFilename assigns a backing file inside the Manager directory if
// none is set. The name is derived from the public id, or is a random uuid
// when the public id is empty. A numeric suffix is appended until the name
// is neither on disk nor reserved by another configuration.
func (c *KeyConfig) GenerateFilename() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generateFilename()
}

func (c *KeyConfig) generateFilename() error {
	if err := c.attached(); err != nil {
		return err
	}
	if c.filename != "" {
		return nil
	}

	dir := c.manager.ConfigDir()
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		if err == nil {
			err = fmt.Errorf("%s is not a directory", dir)
		}
		return errors.Join(ErrNoStorageAvailable, err)
	}

	base := c.publicID
	if base == "" {
		base = uuid.NewString()
	}

	for n := 0; ; n++ {
		name := base
		if n > 0 {
			name += "-" + strconv.Itoa(n)
		}
		path := filepath.Join(dir, name+fileExt)

		_, err := os.Lstat(path)
		switch {
		case err == nil:
			continue
		case !errors.Is(err, fs.ErrNotExist):
			return errors.Join(ErrNoStorageAvailable, err)
		}

		if c.manager.reserveFilename(c, "", path) {
			c.filename = path
			return nil
		}
	}
}

// SetFilename points the configuration at another backing file. Relative
// names are resolved against the Manager directory.
func (c *KeyConfig) SetFilename(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.attached(); err != nil {
		return err
	}
	path := c.manager.resolve(name)
	if path == c.filename {
		return nil
	}
	if !c.manager.reserveFilename(c, c.filename, path) {
		return errors.Join(ErrFileAlreadyExists, fmt.Errorf("%s is used by another key", path))
	}
	c.filename = path
	c.persisted = false
	c.changed = true
	return nil
}

// CheckFileName validates the backing file for the intended access. Reads
// require the file to exist. Writes require it to be absent, unless it is
// the file this configuration was loaded from or saved to before.
func (c *KeyConfig) CheckFileName(forWrite bool) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.checkFileName(forWrite)
}

func (c *KeyConfig) checkFileName(forWrite bool) (string, error) {
	if c.filename == "" {
		return "", errors.Join(ErrFileNotFound, errors.New("no filename assigned"))
	}

	info, err := os.Stat(c.filename)
	exists := err == nil
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", errors.Join(ErrIO, err)
	}
	if exists && info.IsDir() {
		return "", errors.Join(ErrIO, fmt.Errorf("%s is a directory", c.filename))
	}

	if !forWrite {
		if !exists {
			return "", errors.Join(ErrFileNotFound, errors.New(c.filename))
		}
		return c.filename, nil
	}

	if exists && !c.persisted {
		return "", errors.Join(ErrFileAlreadyExists, errors.New(c.filename))
	}
	return c.filename, nil
}

// Save writes the configuration to its backing file, generating a filename
// first if needed. The write is atomic.
func (c *KeyConfig) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.save()
}

func (c *KeyConfig) save() error {
	if err := c.generateFilename(); err != nil {
		return err
	}
	path, err := c.checkFileName(true)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c.record(), "", "  ")
	if err != nil {
		return errors.Join(ErrIO, err)
	}
	if err := writeFileAtomic(path, append(data, '\n'), filePerm); err != nil {
		return errors.Join(ErrIO, err)
	}

	c.persisted = true
	c.changed = false
	return nil
}

// Load replaces the configuration with the content of its backing file.
func (c *KeyConfig) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load()
}

func (c *KeyConfig) load() error {
	if err := c.attached(); err != nil {
		return err
	}
	path, err := c.checkFileName(false)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Join(ErrIO, err)
	}
	d, err := decodeRecord(data)
	if err != nil {
		return errors.Join(err, errors.New(path))
	}

	if d.publicID != c.publicID {
		if err := c.manager.claimPublicID(c, c.publicID, d.publicID); err != nil {
			return err
		}
	}

	c.publicID = d.publicID
	c.secret = d.secret
	c.token = d.token
	c.description = d.description
	c.sysUser = d.sysUser
	c.persisted = true
	c.changed = false
	return nil
}

// readPersistedToken returns the token currently stored in the backing
// file. ok is false when the file does not exist.
func (c *KeyConfig) readPersistedToken() (tok yubitoken.Token, ok bool, err error) {
	data, err := os.ReadFile(c.filename)
	if errors.Is(err, fs.ErrNotExist) {
		return yubitoken.Token{}, false, nil
	}
	if err != nil {
		return yubitoken.Token{}, false, errors.Join(ErrIO, err)
	}
	d, err := decodeRecord(data)
	if err != nil {
		return yubitoken.Token{}, false, err
	}
	return d.token, true, nil
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it over path, so readers see either the old or the new content.
func writeFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir, base := filepath.Split(path)
	tmp, err := os.CreateTemp(dir, "."+strings.TrimSuffix(base, fileExt)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Chmod(perm); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return err
	}

	// Persist the rename itself. Not every platform can sync a directory.
	if d, derr := os.Open(dir); derr == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
