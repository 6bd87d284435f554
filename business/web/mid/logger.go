package mid

import (
	"context"
	"net/http"
	"time"

	"github.com/rdchain/node/foundation/web"
	"go.uber.org/zap"
)

// Logger writes a line before and after every request, tagged with the
// request's trace id so the two lines can be correlated in aggregated logs.
func Logger(log *zap.SugaredLogger) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			v, err := web.GetValues(ctx)
			if err != nil {
				return handler(ctx, w, r)
			}

			log.Infow("request started", "traceid", v.TraceID, "method", r.Method, "path", r.URL.Path, "remoteaddr", r.RemoteAddr)

			err = handler(ctx, w, r)

			log.Infow("request completed", "traceid", v.TraceID, "method", r.Method, "path", r.URL.Path,
				"statuscode", v.StatusCode, "since", time.Since(v.Now).String())

			return err
		}
		return h
	}
	return m
}
