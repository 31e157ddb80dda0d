package records

import (
	"net/http"

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

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/services", h.ListServices)
	api.GET("/doctors/:id/services", h.ListDoctorServices)
	api.GET("/doctors/:id/feedback", h.ListDoctorFeedback)
	api.GET("/appointments/:id/prescription", h.GetPrescription)

	patientGroup := api.Group("", auth.RequireRole(auth.RolePatient))
	patientGroup.POST("/appointments/:id/feedback", h.SubmitFeedback)
	patientGroup.GET("/prescriptions", h.ListMyPrescriptions)

	doctorGroup := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctorGroup.POST("/appointments/:id/prescription", h.WritePrescription)

	adminGroup := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	adminGroup.POST("/services", h.CreateService)
	adminGroup.PUT("/services/:id", h.UpdateService)
	adminGroup.DELETE("/services/:id", h.DeactivateService)
	adminGroup.POST("/services/:id/doctors", h.AssignDoctor)
	adminGroup.DELETE("/services/:id/doctors/:doctorId", h.UnassignDoctor)
}

// -- Catalog --

type serviceRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	DurationMin int    `json:"duration_min" validate:"required,min=1"`
	BasePrice   int64  `json:"base_price" validate:"min=0"`
}

func (h *Handler) CreateService(c echo.Context) error {
	var req serviceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	svc, err := h.svc.CreateService(c.Request().Context(), ServiceInput{
		Name:        req.Name,
		Description: req.Description,
		DurationMin: req.DurationMin,
		BasePrice:   req.BasePrice,
	})
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, svc)
}

func (h *Handler) UpdateService(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req serviceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	svc, err := h.svc.UpdateService(c.Request().Context(), id, ServiceInput{
		Name:        req.Name,
		Description: req.Description,
		DurationMin: req.DurationMin,
		BasePrice:   req.BasePrice,
	})
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, svc)
}

func (h *Handler) DeactivateService(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeactivateService(c.Request().Context(), id); err != nil {
		return apperror.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListServices(c echo.Context) error {
	pg := pagination.FromContext(c)
	// Admins see retired entries too.
	p, _ := auth.PrincipalFromContext(c.Request().Context())
	services, total, err := h.svc.ListServices(c.Request().Context(), !p.IsAdmin(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(services, total, pg.Limit, pg.Offset))
}

type assignDoctorRequest struct {
	DoctorID string `json:"doctor_id" validate:"required,uuid"`
}

func (h *Handler) AssignDoctor(c echo.Context) error {
	serviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req assignDoctorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.AssignDoctor(c.Request().Context(), serviceID, uuid.MustParse(req.DoctorID)); err != nil {
		return apperror.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) UnassignDoctor(c echo.Context) error {
	serviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	doctorID, err := uuid.Parse(c.Param("doctorId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	if err := h.svc.UnassignDoctor(c.Request().Context(), serviceID, doctorID); err != nil {
		return apperror.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListDoctorServices(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	services, err := h.svc.ListServicesForDoctor(c.Request().Context(), doctorID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, services)
}

// -- Prescriptions --

type prescriptionItemRequest struct {
	Medicine     string `json:"medicine" validate:"required"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Duration     string `json:"duration"`
	Instructions string `json:"instructions"`
}

type prescriptionRequest struct {
	Notes string                    `json:"notes"`
	Items []prescriptionItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) WritePrescription(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req prescriptionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	items := make([]*PrescriptionItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, &PrescriptionItem{
			Medicine:     item.Medicine,
			Dosage:       item.Dosage,
			Frequency:    item.Frequency,
			Duration:     item.Duration,
			Instructions: item.Instructions,
		})
	}
	pr, err := h.svc.WritePrescription(c.Request().Context(), p, id, PrescriptionInput{
		Notes: req.Notes,
		Items: items,
	})
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, pr)
}

func (h *Handler) GetPrescription(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pr, err := h.svc.GetPrescription(c.Request().Context(), p, id)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pr)
}

func (h *Handler) ListMyPrescriptions(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	pg := pagination.FromContext(c)
	prescriptions, total, err := h.svc.ListPrescriptionsForPatient(c.Request().Context(), p.UserID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(prescriptions, total, pg.Limit, pg.Offset))
}

// -- Feedback --

type feedbackRequest struct {
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Comments string `json:"comments"`
}

func (h *Handler) SubmitFeedback(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req feedbackRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	f, err := h.svc.SubmitFeedback(c.Request().Context(), p, id, req.Rating, req.Comments)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, f)
}

func (h *Handler) ListDoctorFeedback(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	feedback, total, err := h.svc.ListFeedbackForDoctor(c.Request().Context(), doctorID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(feedback, total, pg.Limit, pg.Offset))
}
