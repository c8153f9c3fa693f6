// Package softkey emulates a Yubikey in software.
//
// A Device holds the same state as a key configuration (public id, private
// id, AES secret and the last token) and produces OTPs the way the hardware
// does: every call advances the use counter, the session counter rolls over
// when the use counter is exhausted, and the token is sealed with its CRC
// before being encrypted and modhex encoded.
//
// It exists for tests, provisioning checks and the ykauth CLI. It is not a
// replacement for a hardware token: the secret lives in process memory.
//
// Usage:
//
//	dev, err := softkey.New("c0ffee", "010203040506", secret)
//	if err != nil {
//		return err
//	}
//	otp, err := dev.NextOTP()
//
// A Device can also continue from a stored key with FromConfig, which is how
// the CLI generates the next valid OTP for a key.
package softkey
