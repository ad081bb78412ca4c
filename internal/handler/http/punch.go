package http

import (
	"net/http"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/biometric"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/validator"
)

type PunchHandler interface {
	Pull(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
}

type punchHandlerImpl struct {
	ingestion punch.IngestionService
}

func NewPunchHandler(ingestion punch.IngestionService) PunchHandler {
	return &punchHandlerImpl{ingestion: ingestion}
}

// Pull implements PunchHandler. An optional since=RFC3339 bounds the pull;
// without it terminals return every record they hold.
func (h *punchHandlerImpl) Pull(w http.ResponseWriter, r *http.Request) {
	var window biometric.Window
	if since := r.URL.Query().Get("since"); since != "" {
		t, ok := validator.IsValidDateTime(since)
		if !ok {
			response.HandleError(w, validator.ValidationErrors{{
				Field:   "since",
				Message: "since must be an RFC3339 timestamp",
			}})
			return
		}
		window.Since = &t
	}

	results, err := h.ingestion.PullAll(r.Context(), window)
	if err != nil {
		if r.Context().Err() != nil {
			response.HandleError(w, err)
			return
		}
		response.PartialContent(w, "Some terminals could not be pulled", results)
		return
	}

	response.SuccessWithMessage(w, "Terminals pulled", map[string]interface{}{
		"pulled_at": time.Now().UTC().Format(time.RFC3339),
		"results":   results,
	})
}

// List implements PunchHandler.
func (h *punchHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	req := punch.ListPunchesRequest{
		EmployeeNumber: r.URL.Query().Get("employee_number"),
		Date:           r.URL.Query().Get("date"),
	}

	punches, err := h.ingestion.ListPunches(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, punches)
}
