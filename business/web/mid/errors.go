package mid

import (
	"context"
	"net/http"

	"github.com/rdchain/node/business/web/errs"
	"github.com/rdchain/node/foundation/web"
	"go.uber.org/zap"
)

// Errors turns a handler's returned error into an HTTP response: an
// errs.Trusted error is shown to the caller verbatim at its declared status
// code, anything else is logged and hidden behind a generic 500 so internal
// detail never leaks to a client. A shutdown error is left untouched so it
// can keep propagating up to the web.App that started the shutdown.
func Errors(log *zap.SugaredLogger) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if err := handler(ctx, w, r); err != nil {
				traceID := web.GetTraceID(ctx)
				log.Errorw("ERROR", "traceid", traceID, "error", err)

				if web.IsShutdown(err) {
					return err
				}

				if trusted := errs.GetTrusted(err); trusted != nil {
					if respErr := web.Respond(ctx, w, errs.Response{Error: trusted.Error()}, trusted.Status); respErr != nil {
						return respErr
					}
					return nil
				}

				resp := errs.Response{Error: http.StatusText(http.StatusInternalServerError)}
				if respErr := web.Respond(ctx, w, resp, http.StatusInternalServerError); respErr != nil {
					return respErr
				}
			}
			return nil
		}
		return h
	}
	return m
}
