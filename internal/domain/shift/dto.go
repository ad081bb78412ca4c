package shift

type ShiftValidationResponse struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	InWindowStart      string  `json:"in_window_start"`
	InWindowEnd        string  `json:"in_window_end"`
	OutWindowStart     string  `json:"out_window_start"`
	MinimumWorkedHours string  `json:"minimum_worked_hours"`
	CrossesMidnight    bool    `json:"crosses_midnight"`
	NominalHours       float64 `json:"nominal_hours"`
	Valid              bool    `json:"valid"`
	Reason             *string `json:"reason,omitempty"`
}

func NewShiftValidationResponse(s Shift) ShiftValidationResponse {
	resp := ShiftValidationResponse{
		ID:                 s.ID,
		Name:               s.Name,
		InWindowStart:      s.InWindowStart.Format(ClockLayout),
		InWindowEnd:        s.InWindowEnd.Format(ClockLayout),
		OutWindowStart:     s.OutWindowStart.Format(ClockLayout),
		MinimumWorkedHours: s.MinimumWorkedHours.String(),
		CrossesMidnight:    s.CrossesMidnight,
		NominalHours:       s.NominalDuration().Hours(),
		Valid:              true,
	}
	if err := s.Validate(); err != nil {
		reason := err.Error()
		resp.Valid = false
		resp.Reason = &reason
	}
	return resp
}
