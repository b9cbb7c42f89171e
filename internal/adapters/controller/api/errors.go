package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cjfitness/notifier/internal/domain/common/errorz"
	"github.com/cjfitness/notifier/pkg/logger/types"
	"github.com/cjfitness/notifier/pkg/response"
)

const maxBodyBytes = 1 << 20

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		response.BadRequest(w, "Invalid request body")
		return false
	}
	return true
}

// writeError maps domain errors to status codes. Unexpected errors are
// logged and reported with fallback as the message.
func writeError(w http.ResponseWriter, logger *types.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, errorz.ErrInvalidNotification),
		errors.Is(err, errorz.ErrInvalidReminder):
		response.BadRequest(w, err.Error())
	case errors.Is(err, errorz.ErrReminderNotFound):
		response.NotFound(w, err.Error())
	default:
		logger.Errorf("%s: %v", fallback, err)
		response.InternalError(w, fallback)
	}
}
