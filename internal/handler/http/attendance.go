package http

import (
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/handler/http/response"
)

type AttendanceHandler interface {
	RunLive(w http.ResponseWriter, r *http.Request)
	RunBackfill(w http.ResponseWriter, r *http.Request)
	RunDate(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	engine attendance.AttendanceEngine
}

func NewAttendanceHandler(engine attendance.AttendanceEngine) AttendanceHandler {
	return &attendanceHandlerImpl{
		engine: engine,
	}
}

// RunLive implements AttendanceHandler.
func (h *attendanceHandlerImpl) RunLive(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.RunLiveCycle(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	writeRunReport(w, report)
}

// RunBackfill implements AttendanceHandler. The run is bound to the request;
// use cmd/backfill for histories that outlast the server's write timeout.
func (h *attendanceHandlerImpl) RunBackfill(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.RunBackfill(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	writeRunReport(w, report)
}

// RunDate implements AttendanceHandler.
func (h *attendanceHandlerImpl) RunDate(w http.ResponseWriter, r *http.Request) {
	req := attendance.RunDateRequest{Date: r.URL.Query().Get("date")}

	report, err := h.engine.RunDate(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	writeRunReport(w, report)
}

// List implements AttendanceHandler.
func (h *attendanceHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := attendance.AttendanceFilter{}

	if employeeNumber := query.Get("employee_number"); employeeNumber != "" {
		filter.EmployeeNumber = &employeeNumber
	}
	if startDate := query.Get("start_date"); startDate != "" {
		filter.StartDate = &startDate
	}
	if endDate := query.Get("end_date"); endDate != "" {
		filter.EndDate = &endDate
	}
	if status := query.Get("status"); status != "" {
		filter.Status = &status
	}

	// Pagination
	if p := query.Get("page"); p != "" {
		if pageNum, err := strconv.Atoi(p); err == nil {
			filter.Page = pageNum
		}
	}
	if l := query.Get("limit"); l != "" {
		if limitNum, err := strconv.Atoi(l); err == nil {
			filter.Limit = limitNum
		}
	}
	filter.SortOrder = query.Get("sort_order")

	result, err := h.engine.ListAttendance(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Attendances, &response.Meta{
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.TotalCount,
		TotalPages: result.TotalPages,
	})
}

func writeRunReport(w http.ResponseWriter, report attendance.RunReport) {
	if len(report.Errors) > 0 {
		response.PartialContent(w, "Attendance run completed with group errors", report)
		return
	}
	response.SuccessWithMessage(w, "Attendance run completed", report)
}
