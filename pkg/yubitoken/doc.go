// Package yubitoken packs and unpacks the 16-byte Yubikey OTP token and
// computes its CRC16 integrity check.
//
// A token is the plaintext record a device encrypts with its AES key before
// modhex encoding it into an OTP string. Its fields are stored little-endian
// in the following order:
//
//	offset  size  field
//	0       6     UID    private identity
//	6       2     Ctr    session counter, bit 15 is a device flag
//	8       2     Tstpl  timestamp, low 16 bits (~8 Hz)
//	10      1     Tstph  timestamp, high 8 bits
//	11      1     Use    use counter within the session
//	12      2     Rnd    random filler
//	14      2     Crc    inverted CRC16 of bytes 0..13
//
// The CRC is the reflected CCITT variant (polynomial 0x8408, initial value
// 0xFFFF). Running the same CRC over all sixteen bytes of a correctly sealed
// token yields the fixed residue 0xF0B8, which is what IsCrcOk checks.
//
// # Usage
//
//	tok := yubitoken.Token{Ctr: 3, Use: 4, Rnd: 42}
//	copy(tok.UID[:], privateID)
//	tok.SetTimestamp(0x0a0b0c)
//	tok.Seal()
//
//	raw := yubitoken.Encode(tok)
//	back, err := yubitoken.Decode(raw[:])
//	ok := yubitoken.IsCrcOk(back)
package yubitoken
