package mid

import (
	"context"
	"expvar"
	"net/http"
	"runtime"

	"github.com/rdchain/node/foundation/web"
)

// metrics holds the counters this package publishes to expvar. Kept in a
// single struct so DebugMux's /debug/vars endpoint reports them together.
var metrics = struct {
	goroutines *expvar.Int
	requests   *expvar.Int
	errors     *expvar.Int
	panics     *expvar.Int
}{
	goroutines: expvar.NewInt("goroutines"),
	requests:   expvar.NewInt("requests"),
	errors:     expvar.NewInt("errors"),
	panics:     expvar.NewInt("panics"),
}

// Metrics updates program counters using the expvar package. Running the
// application with the GOGC environment variable set to off disables the
// garbage collector, letting these numbers reflect sustained load rather
// than collection noise.
func Metrics() web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			err := handler(ctx, w, r)

			metrics.requests.Add(1)

			if n := runtime.NumGoroutine(); n%100 == 0 {
				metrics.goroutines.Set(int64(n))
			}

			if err != nil {
				metrics.errors.Add(1)
			}

			return err
		}
		return h
	}
	return m
}
