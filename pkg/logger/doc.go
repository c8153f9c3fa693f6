// Package logger builds the *slog.Logger instances used across ykauth and
// provides attribute helpers so that key and verification fields are named
// the same way in every log line.
//
// # Usage
//
//	log := logger.New(
//	    logger.WithLevelName("debug"),
//	    logger.WithFormat(logger.FormatText),
//	    logger.WithComponent("verifier"),
//	)
//
//	log.Debug("otp rejected",
//	    logger.PublicID("vvccbbdd"),
//	    logger.Reason(err),
//	)
//
// Libraries that accept an optional logger default to Discard, which drops
// every record without formatting it.
//
// Helper constructors return the zero slog.Attr for nil values, and slog
// skips empty attributes, so calls like logger.Error(err) are safe when err
// is nil.
package logger
