// Package otpkey holds Yubikey OTP key configurations, persists them as one
// JSON file per key and verifies OTPs against them.
//
// # Architecture
//
// A Manager owns a configuration directory and every KeyConfig loaded from
// or saved into it. It keeps an index by public id, so two configurations
// can never share one, and it provides the collaborators a verification
// needs: the Decrypter that turns the 16-byte ciphertext into a token, the
// Locker that serialises verifications of the same key, and an optional
// AttemptLimiter that throttles repeated failures.
//
// A KeyConfig carries the public id, the private id (stored as the token
// uid), the 16-byte AES secret, free text metadata and the last accepted
// token. CheckOtp runs the verification pipeline:
//
//	split prefix/ciphertext -> modhex decode -> lock -> decrypt -> decode
//	  -> CRC -> private id -> replay -> ratchet -> atomic save -> unlock
//
// The replay check accepts a token only when its (counter, use) pair is
// strictly greater than the stored one, or when the counter is unchanged and
// the timestamp strictly increased. There is no drift window: a token is
// either newer than everything seen before or rejected.
//
// # Usage
//
//	mgr, err := otpkey.NewManager("/var/lib/ykauth/keys",
//	    otpkey.WithDecrypter(otpcipher.AES{}),
//	    otpkey.WithLogger(log),
//	)
//
//	cfg, err := mgr.GetOrCreateConfig("ff001122")
//	_ = cfg.SetPrivateID("010203040506")
//	_ = cfg.SetSecretKey("00112233445566778899aabbccddeeff")
//	err = cfg.Save()
//
//	res, err := mgr.Verify(ctx, otp)
//	if err != nil {
//	    // malformed input or an I/O failure
//	}
//	if res.Valid {
//	    // authenticated as res.SysUser
//	}
//
// # Error Handling
//
// Structural problems (ErrMalformedOtp, modhex.ErrInvalidCharacter) and
// persistence failures are returned as errors. Authentication failures
// (ErrCrcMismatch, ErrIdentityMismatch, ErrReplayDetected) are reported as a
// plain false so that callers can not tell a wrong OTP from a replayed one.
//
// # Persistence
//
// Key files are written to a temporary file in the same directory, synced and
// renamed over the target. A crash never leaves a half written counter
// behind, so the ratchet can not be rolled back.
package otpkey
