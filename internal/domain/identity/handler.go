package identity

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

// RegisterRoutes wires the identity endpoints. public carries no auth; api
// requires a valid token.
func (h *Handler) RegisterRoutes(public, api *echo.Group) {
	public.POST("/auth/register/patient", h.RegisterPatient)
	public.POST("/auth/register/doctor", h.RegisterDoctor)
	public.POST("/auth/login", h.Login)

	api.POST("/auth/change-password", h.ChangePassword)
	api.GET("/doctors", h.ListDoctors)
	api.GET("/doctors/:id/profile", h.GetDoctorProfile)

	patientGroup := api.Group("", auth.RequireRole(auth.RolePatient))
	patientGroup.GET("/patients/me", h.GetMyPatientProfile)
	patientGroup.PUT("/patients/me", h.UpdateMyPatientProfile)

	doctorGroup := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctorGroup.GET("/doctors/me", h.GetMyDoctorProfile)
	doctorGroup.PUT("/doctors/me", h.UpdateMyDoctorProfile)

	adminGroup := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	adminGroup.POST("/reset-password", h.ResetPassword)
	adminGroup.GET("/doctors/pending", h.ListPendingDoctors)
	adminGroup.PATCH("/doctors/:id/approve", h.ApproveDoctor)
	adminGroup.DELETE("/doctors/:id", h.RejectDoctor)
}

type registerPatientRequest struct {
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=8"`
	FirstName      string `json:"first_name" validate:"required"`
	LastName       string `json:"last_name" validate:"required"`
	Phone          string `json:"phone"`
	DateOfBirth    string `json:"date_of_birth" validate:"required"`
	Gender         string `json:"gender"`
	Address        string `json:"address"`
	MedicalHistory string `json:"medical_history"`
}

func (h *Handler) RegisterPatient(c echo.Context) error {
	var req registerPatientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	dob, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date_of_birth must be YYYY-MM-DD")
	}
	user, err := h.svc.RegisterPatient(c.Request().Context(), RegisterPatientInput{
		Email:          req.Email,
		Password:       req.Password,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Phone:          req.Phone,
		DateOfBirth:    dob,
		Gender:         Gender(req.Gender),
		Address:        req.Address,
		MedicalHistory: req.MedicalHistory,
	})
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, user)
}

type registerDoctorRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	FirstName       string `json:"first_name" validate:"required"`
	LastName        string `json:"last_name" validate:"required"`
	Phone           string `json:"phone"`
	Qualification   string `json:"qualification"`
	ExperienceYears int    `json:"experience_years" validate:"min=0"`
	ConsultationFee int64  `json:"consultation_fee" validate:"min=0"`
	Bio             string `json:"bio"`
}

func (h *Handler) RegisterDoctor(c echo.Context) error {
	var req registerDoctorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	user, err := h.svc.RegisterDoctor(c.Request().Context(), RegisterDoctorInput{
		Email:           req.Email,
		Password:        req.Password,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Phone:           req.Phone,
		Qualification:   req.Qualification,
		ExperienceYears: req.ExperienceYears,
		ConsultationFee: req.ConsultationFee,
		Bio:             req.Bio,
	})
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"user":    user,
		"message": "registration received, awaiting admin approval",
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	token, user, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

func (h *Handler) ChangePassword(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.ChangePassword(c.Request().Context(), p.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "password updated"})
}

type resetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

func (h *Handler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.ResetPassword(c.Request().Context(), req.Email, req.NewPassword); err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "password reset"})
}

// -- Patient profile --

func (h *Handler) GetMyPatientProfile(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	patient, err := h.svc.GetPatient(c.Request().Context(), p.UserID)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, patient)
}

type updatePatientRequest struct {
	DateOfBirth    string `json:"date_of_birth"`
	Gender         string `json:"gender"`
	Address        string `json:"address"`
	MedicalHistory string `json:"medical_history"`
}

func (h *Handler) UpdateMyPatientProfile(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	var req updatePatientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	current, err := h.svc.GetPatient(c.Request().Context(), p.UserID)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "date_of_birth must be YYYY-MM-DD")
		}
		current.DateOfBirth = dob
	}
	if req.Gender != "" {
		current.Gender = Gender(req.Gender)
	}
	if req.Address != "" {
		current.Address = req.Address
	}
	if req.MedicalHistory != "" {
		current.MedicalHistory = req.MedicalHistory
	}
	updated, err := h.svc.UpdatePatient(c.Request().Context(), current)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, updated)
}

// -- Doctor profile --

func (h *Handler) GetMyDoctorProfile(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	doctor, err := h.svc.GetDoctor(c.Request().Context(), p.UserID)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, doctor)
}

func (h *Handler) GetDoctorProfile(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	doctor, err := h.svc.GetDoctor(c.Request().Context(), id)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, doctor)
}

type updateDoctorRequest struct {
	Qualification   string `json:"qualification"`
	ExperienceYears *int   `json:"experience_years"`
	ConsultationFee *int64 `json:"consultation_fee"`
	Bio             string `json:"bio"`
}

func (h *Handler) UpdateMyDoctorProfile(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	var req updateDoctorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	current, err := h.svc.GetDoctor(c.Request().Context(), p.UserID)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	if req.Qualification != "" {
		current.Qualification = req.Qualification
	}
	if req.ExperienceYears != nil {
		current.ExperienceYears = *req.ExperienceYears
	}
	if req.ConsultationFee != nil {
		current.ConsultationFee = *req.ConsultationFee
	}
	if req.Bio != "" {
		current.Bio = req.Bio
	}
	updated, err := h.svc.UpdateDoctor(c.Request().Context(), current)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, updated)
}

// -- Admin --

func (h *Handler) ListDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	doctors, total, err := h.svc.ListDoctors(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(doctors, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListPendingDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	doctors, total, err := h.svc.ListPendingDoctors(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(doctors, total, pg.Limit, pg.Offset))
}

func (h *Handler) ApproveDoctor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	doctor, err := h.svc.ApproveDoctor(c.Request().Context(), id)
	if err != nil {
		return apperror.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, doctor)
}

func (h *Handler) RejectDoctor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.RejectDoctor(c.Request().Context(), id); err != nil {
		return apperror.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
