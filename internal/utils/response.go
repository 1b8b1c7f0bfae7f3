package utils

import (
	"encoding/json"
	"net/http"

	"github.com/selams/selams-web/internal/models"
)

// WriteJSONResponse writes the standard API envelope with the given status.
func WriteJSONResponse(w http.ResponseWriter, status int, success bool, message string, data interface{}, errDetail interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(models.APIResponse{
		Success: success,
		Message: message,
		Data:    data,
		Error:   errDetail,
	})
}
