package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/chorecal/internal/recurrence"
	"github.com/dukerupert/chorecal/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps store and validation errors onto HTTP statuses. Anything
// unclassified is logged and reported as a generic 500.
func writeError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	var ve *recurrence.ValidationError
	switch {
	case errors.As(err, &ve):
		writeMessage(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, store.ErrNotFound):
		writeMessage(w, http.StatusNotFound, op+": not found")
	case errors.Is(err, store.ErrConflict):
		writeMessage(w, http.StatusConflict, op+": already exists")
	default:
		logger.Error(op, "error", err)
		writeMessage(w, http.StatusInternalServerError, "failed to "+op)
	}
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// parseWindow reads the inclusive start/end date query parameters and
// rejects windows longer than maxDays.
func parseWindow(r *http.Request, maxDays int) (recurrence.Window, error) {
	q := r.URL.Query()
	startStr, endStr := q.Get("start"), q.Get("end")
	if startStr == "" || endStr == "" {
		return recurrence.Window{}, &recurrence.ValidationError{Field: "start", Message: "start and end query parameters are required"}
	}

	start, err := recurrence.ParseDate(startStr)
	if err != nil {
		return recurrence.Window{}, &recurrence.ValidationError{Field: "start", Message: "must be YYYY-MM-DD"}
	}
	end, err := recurrence.ParseDate(endStr)
	if err != nil {
		return recurrence.Window{}, &recurrence.ValidationError{Field: "end", Message: "must be YYYY-MM-DD"}
	}
	if end.Before(start) {
		return recurrence.Window{}, &recurrence.ValidationError{Field: "end", Message: "end is before start"}
	}
	if days := int(end.Sub(start).Hours()/24) + 1; maxDays > 0 && days > maxDays {
		return recurrence.Window{}, &recurrence.ValidationError{Field: "end", Message: fmt.Sprintf("window of %d days exceeds the %d day maximum", days, maxDays)}
	}
	return recurrence.Window{Start: start, End: end}, nil
}
