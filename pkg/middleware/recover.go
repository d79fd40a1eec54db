package middleware

import (
	"log/slog"

	"github.com/gorilla/handlers"
)

type recoveryLogger struct {
	logger *slog.Logger
}

func (l recoveryLogger) Println(v ...any) {
	l.logger.Error("handler panic", "panic", v)
}

// Recover returns middleware that converts handler panics into 500
// responses and logs the recovered value.
func Recover(logger *slog.Logger) Func {
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{logger: logger}),
		handlers.PrintRecoveryStack(false),
	)
}

// ProxyHeaders returns middleware that honors X-Forwarded-For, X-Real-IP,
// and X-Forwarded-Proto from a trusted reverse proxy.
func ProxyHeaders() Func {
	return handlers.ProxyHeaders
}

// Compress returns middleware that gzip or deflate encodes responses when
// the client accepts it.
func Compress() Func {
	return handlers.CompressHandler
}
