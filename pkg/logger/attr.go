package logger

import (
	"log/slog"
	"time"
)

func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Reason records why a verification was rejected.
func Reason(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("reason", err.Error())
}

func PublicID(id string) slog.Attr {
	return slog.String("public_id", id)
}

func Filename(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("filename", name)
}

func SysUser(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("sys_user", name)
}

// Counter records the ratchet position of a token.
func Counter(ctr uint16, use uint8) slog.Attr {
	return slog.Group("counter", slog.Int("ctr", int(ctr)), slog.Int("use", int(use)))
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}
