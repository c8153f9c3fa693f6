package yubitoken

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	Size         = 16     // Encoded token length in bytes
	UIDSize      = 6      // Private identity length in bytes
	CrcOkResidue = 0xf0b8 // CRC16 of a sealed token including its CRC field
	CounterFlag  = 0x8000 // Reserved bit of Ctr, not part of the counter value
	MaxTimestamp = 0xffffff
)

// Token is the decrypted content of a Yubikey OTP.
type Token struct {
	UID   [UIDSize]byte
	Ctr   uint16
	Tstpl uint16
	Tstph uint8
	Use   uint8
	Rnd   uint16
	Crc   uint16
}

// Counter returns the session counter without the reserved flag bit.
func (t Token) Counter() uint16 {
	return t.Ctr &^ CounterFlag
}

// Timestamp returns the 24-bit timestamp assembled from Tstph and Tstpl.
func (t Token) Timestamp() uint32 {
	return uint32(t.Tstph)<<16 | uint32(t.Tstpl)
}

// NewTimestamp returns a zero token carrying the 24-bit timestamp ts.
func NewTimestamp(ts uint32) Token {
	var t Token
	t.SetTimestamp(ts)
	return t
}

// SetTimestamp splits ts into Tstpl and Tstph. Bits above 24 are dropped.
func (t *Token) SetTimestamp(ts uint32) {
	t.Tstpl = uint16(ts)
	t.Tstph = uint8(ts >> 16)
}

// UIDHex returns the private identity as lower case hex.
func (t Token) UIDHex() string {
	return hex.EncodeToString(t.UID[:])
}

// Bytes returns the encoded token as a slice.
func (t Token) Bytes() []byte {
	b := Encode(t)
	return b[:]
}

// Seal stores the CRC of the leading fields into Crc.
func (t *Token) Seal() {
	t.Crc = ComputeCrc(*t)
}

// JSON renders the token fields for diagnostics. It is not the persisted
// key file format.
func (t Token) JSON() string {
	b, err := json.Marshal(struct {
		UID   string `json:"uid"`
		Ctr   uint16 `json:"ctr"`
		Use   uint8  `json:"use"`
		Tstpl uint16 `json:"tstpl"`
		Tstph uint8  `json:"tstph"`
		Rnd   uint16 `json:"rnd"`
		Crc   uint16 `json:"crc"`
	}{t.UIDHex(), t.Ctr, t.Use, t.Tstpl, t.Tstph, t.Rnd, t.Crc})
	if err != nil {
		return "{}"
	}
	return string(b)
}

// String implements fmt.Stringer.
func (t Token) String() string {
	return t.JSON()
}

// Encode packs the token into its 16-byte little-endian wire form.
func Encode(t Token) [Size]byte {
	var b [Size]byte
	copy(b[0:6], t.UID[:])
	binary.LittleEndian.PutUint16(b[6:8], t.Ctr)
	binary.LittleEndian.PutUint16(b[8:10], t.Tstpl)
	b[10] = t.Tstph
	b[11] = t.Use
	binary.LittleEndian.PutUint16(b[12:14], t.Rnd)
	binary.LittleEndian.PutUint16(b[14:16], t.Crc)
	return b
}

// Decode unpacks a token. The buffer must be exactly Size bytes long.
func Decode(b []byte) (Token, error) {
	if len(b) != Size {
		return Token{}, errors.Join(ErrMalformedToken, fmt.Errorf("got %d bytes, want %d", len(b), Size))
	}

	var t Token
	copy(t.UID[:], b[0:6])
	t.Ctr = binary.LittleEndian.Uint16(b[6:8])
	t.Tstpl = binary.LittleEndian.Uint16(b[8:10])
	t.Tstph = b[10]
	t.Use = b[11]
	t.Rnd = binary.LittleEndian.Uint16(b[12:14])
	t.Crc = binary.LittleEndian.Uint16(b[14:16])
	return t, nil
}
