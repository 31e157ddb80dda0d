package scheduling

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinichq/clinic/internal/platform/auth"
	"github.com/clinichq/clinic/internal/platform/middleware"
)

var handlerSecret = []byte("test-secret")

func newTestServer() (*echo.Echo, *fixture) {
	f := newFixture()
	e := echo.New()
	e.Validator = middleware.NewValidator()
	api := e.Group("/api/v1", auth.JWTMiddleware(handlerSecret))
	NewHandler(f.svc).RegisterRoutes(api)
	return e, f
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

func bookBody(doctorID uuid.UUID, slot string) string {
	return fmt.Sprintf(`{
		"doctor_id": "%s",
		"service_id": "%s",
		"date": "2026-09-14",
		"time_slot": "%s"
	}`, doctorID, uuid.New(), slot)
}

func TestBookEndpoint(t *testing.T) {
	e, f := newTestServer()
	patientID := uuid.New()
	token := tokenFor(t, patientID, auth.RolePatient)

	rec := doJSON(e, http.MethodPost, "/api/v1/appointments", token, bookBody(f.doctorID, "10:30"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var a Appointment
	if err := json.Unmarshal(rec.Body.Bytes(), &a); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if a.Status != StatusScheduled {
		t.Errorf("Status = %v", a.Status)
	}
	if a.PatientID != patientID {
		t.Errorf("PatientID = %v, want the token's subject", a.PatientID)
	}
}

func TestBookEndpointAuth(t *testing.T) {
	e, f := newTestServer()

	// No token.
	rec := doJSON(e, http.MethodPost, "/api/v1/appointments", "", bookBody(f.doctorID, "10:30"))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", rec.Code)
	}

	// Doctors cannot book.
	doctorToken := tokenFor(t, f.doctorID, auth.RoleDoctor)
	rec = doJSON(e, http.MethodPost, "/api/v1/appointments", doctorToken, bookBody(f.doctorID, "10:30"))
	if rec.Code != http.StatusForbidden {
		t.Errorf("doctor token: status = %d, want 403", rec.Code)
	}
}

func TestBookEndpointBadInput(t *testing.T) {
	e, f := newTestServer()
	token := tokenFor(t, uuid.New(), auth.RolePatient)

	rec := doJSON(e, http.MethodPost, "/api/v1/appointments", token,
		`{"doctor_id": "not-a-uuid", "service_id": "also-bad", "date": "2026-09-14", "time_slot": "10:30"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad uuid: status = %d, want 400", rec.Code)
	}

	rec = doJSON(e, http.MethodPost, "/api/v1/appointments", token, fmt.Sprintf(
		`{"doctor_id": "%s", "service_id": "%s", "date": "14-09-2026", "time_slot": "10:30"}`,
		f.doctorID, uuid.New()))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad date: status = %d, want 400", rec.Code)
	}
}

func TestBookEndpointConflict(t *testing.T) {
	e, f := newTestServer()

	rec := doJSON(e, http.MethodPost, "/api/v1/appointments",
		tokenFor(t, uuid.New(), auth.RolePatient), bookBody(f.doctorID, "10:30"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("first booking: status = %d", rec.Code)
	}

	rec = doJSON(e, http.MethodPost, "/api/v1/appointments",
		tokenFor(t, uuid.New(), auth.RolePatient), bookBody(f.doctorID, "10:30"))
	if rec.Code != http.StatusConflict {
		t.Errorf("second booking: status = %d, want 409, body = %s", rec.Code, rec.Body.String())
	}
}

func TestCheckAvailabilityEndpoint(t *testing.T) {
	e, f := newTestServer()
	token := tokenFor(t, uuid.New(), auth.RolePatient)

	rec := doJSON(e, http.MethodGet,
		fmt.Sprintf("/api/v1/doctors/%s/availability?date=2026-09-14&time=10:30", f.doctorID), token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Available   bool     `json:"available"`
		ValidRanges []string `json:"valid_ranges"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Available {
		t.Error("10:30 on Monday should be available")
	}
	if len(resp.ValidRanges) != 2 {
		t.Errorf("ValidRanges = %v, want both windows", resp.ValidRanges)
	}

	rec = doJSON(e, http.MethodGet,
		fmt.Sprintf("/api/v1/doctors/%s/availability?date=2026-09-14&time=14:00", f.doctorID), token, "")
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Available {
		t.Error("14:00 on Monday should not be available")
	}

	rec = doJSON(e, http.MethodGet,
		fmt.Sprintf("/api/v1/doctors/%s/availability?date=2026-09-14&time=1030", f.doctorID), token, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad time: status = %d, want 400", rec.Code)
	}
}

func TestRescheduleEndpoint(t *testing.T) {
	e, f := newTestServer()
	patientID := uuid.New()
	a := f.book(t, patientID, "10:30")
	token := tokenFor(t, patientID, auth.RolePatient)

	rec := doJSON(e, http.MethodPatch, "/api/v1/appointments/"+a.ID.String()+"/reschedule", token,
		`{"date": "2026-09-14", "time_slot": "17:30"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var updated Appointment
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.TimeSlot != "17:30" {
		t.Errorf("TimeSlot = %s", updated.TimeSlot)
	}

	// An invalid target slot reports the valid windows.
	rec = doJSON(e, http.MethodPatch, "/api/v1/appointments/"+a.ID.String()+"/reschedule", token,
		`{"date": "2026-09-14", "time_slot": "14:00"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid slot: status = %d, want 400", rec.Code)
	}
}

func TestCancelEndpoint(t *testing.T) {
	e, f := newTestServer()
	patientID := uuid.New()
	a := f.book(t, patientID, "10:30")

	// Doctors may not use the cancel route.
	rec := doJSON(e, http.MethodPatch, "/api/v1/appointments/"+a.ID.String()+"/cancel",
		tokenFor(t, f.doctorID, auth.RoleDoctor), "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("doctor: status = %d, want 403", rec.Code)
	}

	rec = doJSON(e, http.MethodPatch, "/api/v1/appointments/"+a.ID.String()+"/cancel",
		tokenFor(t, patientID, auth.RolePatient), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("owner: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var cancelled Appointment
	if err := json.Unmarshal(rec.Body.Bytes(), &cancelled); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Errorf("Status = %v", cancelled.Status)
	}
}

func TestCompleteEndpoint(t *testing.T) {
	e, f := newTestServer()
	a := f.book(t, uuid.New(), "10:30")

	rec := doJSON(e, http.MethodPatch, "/api/v1/appointments/"+a.ID.String()+"/complete",
		tokenFor(t, f.doctorID, auth.RoleDoctor), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// Patients cannot reach the route at all.
	rec = doJSON(e, http.MethodPatch, "/api/v1/appointments/"+a.ID.String()+"/complete",
		tokenFor(t, a.PatientID, auth.RolePatient), "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("patient: status = %d, want 403", rec.Code)
	}
}

func TestSetStatusEndpoint(t *testing.T) {
	e, f := newTestServer()
	a := f.book(t, uuid.New(), "10:30")
	adminToken := tokenFor(t, uuid.New(), auth.RoleAdmin)

	rec := doJSON(e, http.MethodPatch, "/api/v1/appointments/"+a.ID.String()+"/status",
		adminToken, `{"status": "No-Show"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "status updated to No-Show") {
		t.Errorf("body = %s", rec.Body.String())
	}

	rec = doJSON(e, http.MethodPatch, "/api/v1/appointments/"+a.ID.String()+"/status",
		adminToken, `{"status": "Lost"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown status: status = %d, want 400", rec.Code)
	}
}

func TestListAppointmentsEndpoint(t *testing.T) {
	e, f := newTestServer()
	patientID := uuid.New()
	f.book(t, patientID, "10:30")
	f.book(t, patientID, "11:00")
	f.book(t, uuid.New(), "11:30")

	rec := doJSON(e, http.MethodGet, "/api/v1/appointments",
		tokenFor(t, patientID, auth.RolePatient), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data  []Appointment `json:"data"`
		Total int           `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("patient total = %d, want 2", resp.Total)
	}

	// The doctor sees all three.
	rec = doJSON(e, http.MethodGet, "/api/v1/appointments",
		tokenFor(t, f.doctorID, auth.RoleDoctor), "")
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 3 {
		t.Errorf("doctor total = %d, want 3", resp.Total)
	}

	// ?date=today filters out the Monday bookings.
	rec = doJSON(e, http.MethodGet, "/api/v1/appointments?date=today",
		tokenFor(t, f.doctorID, auth.RoleDoctor), "")
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 0 {
		t.Errorf("today total = %d, want 0", resp.Total)
	}
}

func TestScheduleEndpoints(t *testing.T) {
	e, f := newTestServer()
	doctorToken := tokenFor(t, f.doctorID, auth.RoleDoctor)

	rec := doJSON(e, http.MethodPut, "/api/v1/schedule", doctorToken, `{
		"shifts": [
			{"weekday": 2, "shift": "Morning", "start": "09:00", "end": "12:00"},
			{"weekday": 2, "shift": "Evening", "start": "16:00", "end": "20:00"}
		]
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(e, http.MethodGet, "/api/v1/schedule", doctorToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET: status = %d", rec.Code)
	}
	var shifts []ShiftTemplate
	if err := json.Unmarshal(rec.Body.Bytes(), &shifts); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(shifts) != 2 {
		t.Errorf("len(shifts) = %d, want 2", len(shifts))
	}

	// Patients cannot edit a schedule.
	rec = doJSON(e, http.MethodPut, "/api/v1/schedule",
		tokenFor(t, uuid.New(), auth.RolePatient), `{"shifts": []}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("patient PUT: status = %d, want 403", rec.Code)
	}

	// Anyone authenticated can read a doctor's schedule.
	rec = doJSON(e, http.MethodGet, "/api/v1/doctors/"+f.doctorID.String()+"/schedule",
		tokenFor(t, uuid.New(), auth.RolePatient), "")
	if rec.Code != http.StatusOK {
		t.Errorf("public schedule: status = %d", rec.Code)
	}
}

func TestLeaveEndpoints(t *testing.T) {
	e, f := newTestServer()
	doctorToken := tokenFor(t, f.doctorID, auth.RoleDoctor)
	adminToken := tokenFor(t, uuid.New(), auth.RoleAdmin)

	// Doctor self-service leave is approved immediately.
	rec := doJSON(e, http.MethodPost, "/api/v1/leaves", doctorToken,
		`{"start_date": "2026-09-14", "end_date": "2026-09-15", "reason": "conference"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /leaves: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var l DoctorLeave
	if err := json.Unmarshal(rec.Body.Bytes(), &l); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if l.Status != LeaveApproved {
		t.Errorf("Status = %v, want Approved", l.Status)
	}

	// Admin-filed requests start Pending and show up in the queue.
	rec = doJSON(e, http.MethodPost, "/api/v1/admin/leaves", adminToken, fmt.Sprintf(
		`{"doctor_id": "%s", "start_date": "2026-09-21", "end_date": "2026-09-21"}`, f.doctorID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /admin/leaves: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var pending DoctorLeave
	if err := json.Unmarshal(rec.Body.Bytes(), &pending); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if pending.Status != LeavePending {
		t.Errorf("Status = %v, want Pending", pending.Status)
	}

	rec = doJSON(e, http.MethodGet, "/api/v1/admin/leaves", adminToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /admin/leaves: status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), pending.ID.String()) {
		t.Error("pending leave should be listed")
	}

	// Decide it.
	rec = doJSON(e, http.MethodPatch, "/api/v1/admin/leaves/"+pending.ID.String(), adminToken,
		`{"status": "Approved"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PATCH: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// The status field is constrained at the edge.
	rec = doJSON(e, http.MethodPatch, "/api/v1/admin/leaves/"+pending.ID.String(), adminToken,
		`{"status": "Maybe"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad status: status = %d, want 400", rec.Code)
	}

	// Doctors cannot reach the admin surface.
	rec = doJSON(e, http.MethodGet, "/api/v1/admin/leaves", doctorToken, "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("doctor on admin route: status = %d, want 403", rec.Code)
	}

	// The owner deletes the self-service leave.
	rec = doJSON(e, http.MethodDelete, "/api/v1/leaves/"+l.ID.String(), doctorToken, "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("DELETE: status = %d, want 204", rec.Code)
	}
}

func TestDoctorLeavesEndpoint(t *testing.T) {
	e, f := newTestServer()
	if _, err := f.svc.SubmitLeave(context.Background(), f.doctorID, monday, monday, "away"); err != nil {
		t.Fatalf("SubmitLeave: %v", err)
	}

	rec := doJSON(e, http.MethodGet, "/api/v1/doctors/"+f.doctorID.String()+"/leaves",
		tokenFor(t, uuid.New(), auth.RolePatient), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var leaves []DoctorLeave
	if err := json.Unmarshal(rec.Body.Bytes(), &leaves); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(leaves) != 1 {
		t.Errorf("len(leaves) = %d, want 1", len(leaves))
	}
}
