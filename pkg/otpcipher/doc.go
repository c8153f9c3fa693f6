// Package otpcipher provides the AES-128 single block primitive Yubikey
// tokens use to protect their 16-byte token.
//
// A Yubikey OTP carries exactly one AES block, so the cipher is applied in
// raw block mode without chaining, padding or nonce. The verifier in
// package otpkey only depends on the Decrypt contract; AES is the default
// implementation wired by the command line tool.
//
//	var c otpcipher.AES
//	plain, err := c.Decrypt(ciphertext, secret)
//
// Encrypt is the inverse and is used by software tokens (package softkey)
// and tests to produce OTPs.
package otpcipher
