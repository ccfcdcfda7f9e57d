// Package reqctx carries per-request state (caller identity, language, client
// details) through context.Context instead of process globals.
package reqctx

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/yukikurage/labelit-api/internal/logging"
)

// Info describes the request being served.
type Info struct {
	RequestID string
	Username  string
	Language  string
	ClientIP  string
	UserAgent string
	Logger    zerolog.Logger
}

type infoKey struct{}

// NewContext returns ctx carrying info and its logger.
func NewContext(ctx context.Context, info *Info) context.Context {
	ctx = context.WithValue(ctx, infoKey{}, info)
	return logging.ContextWithLogger(ctx, info.Logger)
}

// FromContext returns the request info, if any.
func FromContext(ctx context.Context) (*Info, bool) {
	if ctx == nil {
		return nil, false
	}
	info, ok := ctx.Value(infoKey{}).(*Info)
	return info, ok
}
