package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/selams/selams-web/internal/utils"
)

// HealthHandler reports the backend service plus every optional check
// (database, cache). Any failure turns the answer into a 503.
func HealthHandler(b Backend, checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := map[string]interface{}{"time": time.Now().UTC()}
		ok := b.Health(ctx) == nil
		status["backend"] = ok
		for name, p := range checks {
			up := p.Ping(ctx) == nil
			status[name] = up
			ok = ok && up
		}
		if !ok {
			utils.WriteJSONResponse(w, http.StatusServiceUnavailable, false, "degraded", status, nil)
			return
		}
		utils.WriteJSONResponse(w, http.StatusOK, true, "ok", status, nil)
	}
}
