package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Deepnarayan70/ai-stock-trading-simulator/utils"
	"github.com/google/uuid"
)

// Logger assigns every request an rqID, threads it through the context and
// logs start/finish with the duration.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()

		rqID := uuid.NewString()
		ctx := utils.CtxWithRqID(r.Context(), rqID)
		w.Header().Set("X-Request-ID", rqID)

		slog.Info(
			"start request",
			slog.String("rqID", rqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)

		defer func() {
			slog.Info(
				"request finished",
				slog.String("rqID", rqID),
				slog.String("request duration", fmt.Sprintf("%.2fs", time.Since(now).Seconds())),
			)
		}()

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
