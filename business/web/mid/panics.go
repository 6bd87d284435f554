package mid

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/rdchain/node/foundation/web"
)

// Panics recovers any panic escaping the next handler and turns it into an
// error, so Errors can respond with a 500 instead of the process crashing a
// single goroutine out from under the listener.
func Panics() web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = fmt.Errorf("panic: %v: %s", rec, string(debug.Stack()))
				}
			}()
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
