package scheduling

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinichq/clinic/internal/platform/auth"
	"github.com/clinichq/clinic/pkg/apperror"
	"github.com/clinichq/clinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes wires the scheduling endpoints onto the authenticated group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/doctors/:id/availability", h.CheckAvailability)
	api.GET("/doctors/:id/schedule", h.GetDoctorSchedule)
	api.GET("/doctors/:id/leaves", h.GetDoctorLeaves)

	patientGroup := api.Group("", auth.RequireRole(auth.RolePatient))
	patientGroup.POST("/appointments", h.Book)
	patientGroup.PATCH("/appointments/:id/reschedule", h.Reschedule)

	api.GET("/appointments", h.ListAppointments, auth.RequireRole(auth.RolePatient, auth.RoleDoctor))
	api.PATCH("/appointments/:id/cancel", h.Cancel, auth.RequireRole(auth.RolePatient, auth.RoleAdmin))
	api.PATCH("/appointments/:id/complete", h.Complete, auth.RequireRole(auth.RoleDoctor))
	api.PATCH("/appointments/:id/status", h.SetStatus, auth.RequireRole(auth.RoleDoctor, auth.RoleAdmin))

	doctorGroup := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctorGroup.GET("/schedule", h.GetMySchedule)
	doctorGroup.PUT("/schedule", h.ReplaceMySchedule)
	doctorGroup.POST("/leaves", h.SubmitLeave)

	api.DELETE("/leaves/:id", h.DeleteLeave, auth.RequireRole(auth.RoleDoctor, auth.RoleAdmin))

	adminGroup := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	adminGroup.GET("/appointments/today", h.TodayQueue)
	adminGroup.POST("/leaves", h.RequestLeave)
	adminGroup.GET("/leaves", h.ListLeaveRequests)
	adminGroup.PATCH("/leaves/:id", h.DecideLeave)
}

// -- Appointments --

type bookRequest struct {
	DoctorID  string `json:"doctor_id" validate:"required,uuid"`
	ServiceID string `json:"service_id" validate:"required,uuid"`
	Date      string `json:"date" validate:"required"`
	TimeSlot  string `json:"time_slot" validate:"required"`
	Reason    string `json:"reason"`
}

func (h *Handler) Book(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}

	a, err := h.svc.Book(c.Request().Context(), BookInput{
		PatientID: p.UserID,
		DoctorID:  uuid.MustParse(req.DoctorID),
		ServiceID: uuid.MustParse(req.ServiceID),
		Date:      date,
		TimeSlot:  req.TimeSlot,
		Reason:    req.Reason,
	})
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	pg := pagination.FromContext(c)

	var (
		appts []*Appointment
		total int
		err   error
	)
	if p.IsDoctor() {
		appts, total, err = h.svc.ListForDoctor(c.Request().Context(), p.UserID,
			c.QueryParam("date") == "today", pg.Limit, pg.Offset)
	} else {
		appts, total, err = h.svc.ListForPatient(c.Request().Context(), p.UserID, pg.Limit, pg.Offset)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(appts, total, pg.Limit, pg.Offset))
}

type rescheduleRequest struct {
	Date     string `json:"date" validate:"required"`
	TimeSlot string `json:"time_slot" validate:"required"`
}

func (h *Handler) Reschedule(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req rescheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}

	a, err := h.svc.Reschedule(c.Request().Context(), p, id, date, req.TimeSlot)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Cancel(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Cancel(c.Request().Context(), p, id)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Complete(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Complete(c.Request().Context(), p, id)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

type setStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) SetStatus(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req setStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.SetStatus(c.Request().Context(), p, id, Status(req.Status))
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":     "status updated to " + string(a.Status),
		"appointment": a,
	})
}

func (h *Handler) TodayQueue(c echo.Context) error {
	pg := pagination.FromContext(c)
	appts, total, err := h.svc.TodayQueue(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(appts, total, pg.Limit, pg.Offset))
}

// -- Availability --

// CheckAvailability probes one slot and always returns the valid ranges for
// the requested day so clients can offer alternatives.
func (h *Handler) CheckAvailability(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	date, err := time.Parse("2006-01-02", c.QueryParam("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	slot := c.QueryParam("time")
	if !ValidSlot(slot) {
		return echo.NewHTTPError(http.StatusBadRequest, "time must be HH:MM")
	}

	available, err := h.svc.Availability().IsAvailable(c.Request().Context(), doctorID, date, slot)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	ranges, err := h.svc.Availability().ValidRanges(c.Request().Context(), doctorID, date.Weekday())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"available":    available,
		"valid_ranges": ranges,
	})
}

// -- Weekly schedule --

func (h *Handler) GetMySchedule(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return h.respondSchedule(c, p.UserID)
}

func (h *Handler) GetDoctorSchedule(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return h.respondSchedule(c, doctorID)
}

func (h *Handler) respondSchedule(c echo.Context, doctorID uuid.UUID) error {
	shifts, err := h.svc.GetWeeklySchedule(c.Request().Context(), doctorID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, shifts)
}

type shiftRow struct {
	Weekday int    `json:"weekday" validate:"min=0,max=6"`
	Shift   string `json:"shift" validate:"required"`
	Start   string `json:"start" validate:"required"`
	End     string `json:"end" validate:"required"`
	Closed  bool   `json:"closed"`
}

type replaceScheduleRequest struct {
	Shifts []shiftRow `json:"shifts" validate:"required,dive"`
}

func (h *Handler) ReplaceMySchedule(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	var req replaceScheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	rows := make([]*ShiftTemplate, 0, len(req.Shifts))
	for _, r := range req.Shifts {
		rows = append(rows, &ShiftTemplate{
			Weekday: time.Weekday(r.Weekday),
			Shift:   r.Shift,
			Start:   r.Start,
			End:     r.End,
			Closed:  r.Closed,
		})
	}
	saved, err := h.svc.ReplaceWeeklySchedule(c.Request().Context(), p.UserID, rows)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, saved)
}

// -- Leaves --

type leaveRequest struct {
	DoctorID  string `json:"doctor_id"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
	Reason    string `json:"reason"`
}

func (h *Handler) SubmitLeave(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	var req leaveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	start, end, err := parseLeaveDates(req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	l, err := h.svc.SubmitLeave(c.Request().Context(), p.UserID, start, end, req.Reason)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, l)
}

// RequestLeave is the admin-moderated path; the doctor is named in the body.
func (h *Handler) RequestLeave(c echo.Context) error {
	var req leaveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "doctor_id is required")
	}
	start, end, err := parseLeaveDates(req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	l, err := h.svc.RequestLeave(c.Request().Context(), doctorID, start, end, req.Reason)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, l)
}

func parseLeaveDates(req leaveRequest) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "start_date must be YYYY-MM-DD")
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "end_date must be YYYY-MM-DD")
	}
	return start, end, nil
}

func (h *Handler) GetDoctorLeaves(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	leaves, err := h.svc.ListLeaves(c.Request().Context(), doctorID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, leaves)
}

func (h *Handler) ListLeaveRequests(c echo.Context) error {
	pg := pagination.FromContext(c)
	leaves, total, err := h.svc.ListLeaveRequests(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(leaves, total, pg.Limit, pg.Offset))
}

type decideLeaveRequest struct {
	Status string `json:"status" validate:"required,oneof=Approved Rejected"`
}

func (h *Handler) DecideLeave(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req decideLeaveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	l, err := h.svc.DecideLeave(c.Request().Context(), id, LeaveStatus(req.Status))
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) DeleteLeave(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteLeave(c.Request().Context(), p, id); err != nil {
		return apperror.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
