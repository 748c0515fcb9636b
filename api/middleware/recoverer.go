package middleware

import (
	"fmt"
	"net/http"

	"github.com/angelmondragon/shopkit/api/responses"
	pkgerrors "github.com/angelmondragon/shopkit/pkg/errors"
	"github.com/angelmondragon/shopkit/pkg/logger"
)

// Recoverer turns handler panics into INTERNAL_ERROR responses instead of
// torn connections. http.ErrAbortHandler is re-raised so deliberate aborts
// keep their net/http semantics.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				err := fmt.Errorf("panic: %v", rec)
				ctx := r.Context()
				if logg != nil {
					ctx = logg.WithFields(ctx, map[string]any{"panic": rec})
					logg.Error(ctx, "panic.recovered", err)
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
