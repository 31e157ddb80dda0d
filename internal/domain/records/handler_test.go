package records

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinichq/clinic/internal/domain/scheduling"
	"github.com/clinichq/clinic/internal/platform/auth"
	"github.com/clinichq/clinic/internal/platform/middleware"
)

var handlerSecret = []byte("test-secret")

func newTestServer() (*echo.Echo, *testEnv) {
	env := newTestEnv()
	e := echo.New()
	e.Validator = middleware.NewValidator()
	api := e.Group("/api/v1", auth.JWTMiddleware(handlerSecret))
	NewHandler(env.svc).RegisterRoutes(api)
	return e, env
}

func tokenFor(t *testing.T, userID uuid.UUID, role auth.Role) string {
	t.Helper()
	token, err := auth.IssueToken(handlerSecret, userID, role, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return token
}

func doJSON(e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestServiceCatalogEndpoints(t *testing.T) {
	e, _ := newTestServer()
	adminToken := tokenFor(t, uuid.New(), auth.RoleAdmin)

	rec := doJSON(e, http.MethodPost, "/api/v1/admin/services", adminToken,
		`{"name": "General Consultation", "duration_min": 30, "base_price": 50000}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var svc ClinicService
	if err := json.Unmarshal(rec.Body.Bytes(), &svc); err != nil {
		t.Fatalf("decode: %v", err)
	}

	// Duplicate name conflicts.
	rec = doJSON(e, http.MethodPost, "/api/v1/admin/services", adminToken,
		`{"name": "General Consultation", "duration_min": 15, "base_price": 10000}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate: status = %d, want 409", rec.Code)
	}

	// Patients can read but not write.
	patientToken := tokenFor(t, uuid.New(), auth.RolePatient)
	rec = doJSON(e, http.MethodGet, "/api/v1/services", patientToken, "")
	if rec.Code != http.StatusOK {
		t.Errorf("list: status = %d", rec.Code)
	}
	rec = doJSON(e, http.MethodPost, "/api/v1/admin/services", patientToken,
		`{"name": "X-Ray", "duration_min": 20, "base_price": 30000}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("patient create: status = %d, want 403", rec.Code)
	}

	rec = doJSON(e, http.MethodDelete, "/api/v1/admin/services/"+svc.ID.String(), adminToken, "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("deactivate: status = %d, want 204", rec.Code)
	}
}

func TestWritePrescriptionEndpoint(t *testing.T) {
	e, env := newTestServer()
	a := env.addAppointment(scheduling.StatusCompleted)
	doctorToken := tokenFor(t, a.DoctorID, auth.RoleDoctor)

	rec := doJSON(e, http.MethodPost, "/api/v1/appointments/"+a.ID.String()+"/prescription", doctorToken, `{
		"notes": "rest",
		"items": [{"medicine": "Paracetamol", "dosage": "500mg", "frequency": "2x daily"}]
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// Missing items fails validation at the edge.
	b := env.addAppointment(scheduling.StatusCompleted)
	ownerToken := tokenFor(t, b.DoctorID, auth.RoleDoctor)
	rec = doJSON(e, http.MethodPost, "/api/v1/appointments/"+b.ID.String()+"/prescription", ownerToken,
		`{"notes": "rest", "items": []}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("no items: status = %d, want 400", rec.Code)
	}

	// Patients cannot reach the route.
	rec = doJSON(e, http.MethodPost, "/api/v1/appointments/"+a.ID.String()+"/prescription",
		tokenFor(t, a.PatientID, auth.RolePatient), `{"items": [{"medicine": "Ibuprofen"}]}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("patient: status = %d, want 403", rec.Code)
	}

	// The patient reads it back.
	rec = doJSON(e, http.MethodGet, "/api/v1/appointments/"+a.ID.String()+"/prescription",
		tokenFor(t, a.PatientID, auth.RolePatient), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("read back: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Paracetamol") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestFeedbackEndpoint(t *testing.T) {
	e, env := newTestServer()
	a := env.addAppointment(scheduling.StatusCompleted)
	patientToken := tokenFor(t, a.PatientID, auth.RolePatient)

	rec := doJSON(e, http.MethodPost, "/api/v1/appointments/"+a.ID.String()+"/feedback", patientToken,
		`{"rating": 5, "comments": "great"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// Rating bounds are enforced at the edge.
	rec = doJSON(e, http.MethodPost, "/api/v1/appointments/"+a.ID.String()+"/feedback", patientToken,
		`{"rating": 9}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("rating 9: status = %d, want 400", rec.Code)
	}

	// Second submission conflicts.
	rec = doJSON(e, http.MethodPost, "/api/v1/appointments/"+a.ID.String()+"/feedback", patientToken,
		`{"rating": 3}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("second: status = %d, want 409", rec.Code)
	}

	// Anyone authenticated sees the doctor's feedback.
	rec = doJSON(e, http.MethodGet, "/api/v1/doctors/"+a.DoctorID.String()+"/feedback",
		tokenFor(t, uuid.New(), auth.RolePatient), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "great") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestMyPrescriptionsEndpoint(t *testing.T) {
	e, env := newTestServer()
	a := env.addAppointment(scheduling.StatusCompleted)
	doctor := auth.Principal{UserID: a.DoctorID, Role: auth.RoleDoctor}
	if _, err := env.svc.WritePrescription(context.Background(), doctor, a.ID, prescriptionInput()); err != nil {
		t.Fatalf("WritePrescription: %v", err)
	}

	rec := doJSON(e, http.MethodGet, "/api/v1/prescriptions",
		tokenFor(t, a.PatientID, auth.RolePatient), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data  []Prescription `json:"data"`
		Total int            `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 {
		t.Errorf("total = %d, want 1", resp.Total)
	}
}
