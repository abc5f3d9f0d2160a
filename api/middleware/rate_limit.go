package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gigflowhq/gigflow-backend/api/responses"
	pkgerrors "github.com/gigflowhq/gigflow-backend/pkg/errors"
	"github.com/gigflowhq/gigflow-backend/pkg/logger"
)

// FixedWindowStore is the slice of the redis client the limiter uses.
type FixedWindowStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

const (
	defaultRateLimit  = 120
	defaultRateWindow = time.Minute
)

// RateLimit applies a fixed-window per-caller limit. The key is the
// authenticated user when present, falling back to the remote address.
// Redis outages fail open: a broken limiter never blocks traffic.
func RateLimit(store FixedWindowStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil {
				next.ServeHTTP(w, r)
				return
			}

			caller := UserIDFromContext(r.Context())
			if caller == "" {
				caller = remoteHost(r)
			}

			allowed, _, err := store.FixedWindowAllow(r.Context(), fmt.Sprintf("http:%s", caller), defaultRateLimit, defaultRateWindow)
			if err != nil {
				if logg != nil {
					ctx := logg.WithField(r.Context(), "error", err.Error())
					logg.Warn(ctx, "rate limit check failed")
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
