package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"hackattend/internal/attendance"
	"hackattend/internal/auth"
	"hackattend/internal/directory"
	"hackattend/internal/model"
	"hackattend/internal/qr"
	"hackattend/internal/records"
	"hackattend/internal/session"
	"hackattend/internal/store"
)

func init() { gin.SetMode(gin.TestMode) }

type server struct {
	t      *testing.T
	engine *gin.Engine
	h      *Handler
	repo   *records.Repository
}

func newServer(t *testing.T) *server {
	t.Helper()
	repo := records.NewRepository(store.NewMemory(), nil)
	sessions := session.NewManager(session.NewMemoryStore())
	hasher := auth.BcryptHasher{Cost: bcrypt.MinCost}
	authSvc := auth.NewService(repo, sessions, hasher, auth.Signer{Issuer: "test", Key: "k", TTL: time.Hour}, nil)
	require.NoError(t, authSvc.EnsureAdmin(context.Background(), "admin@x.com", "adminpw"))

	h := New(authSvc,
		directory.NewService(repo, sessions, hasher, nil, nil),
		attendance.NewService(repo, nil),
		repo, Options{}, nil)
	r := gin.New()
	h.Register(r)
	return &server{t: t, engine: r, h: h, repo: repo}
}

func (s *server) do(method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func (s *server) login(email, password string) (string, map[string]any) {
	s.t.Helper()
	w, out := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	return out["token"].(string), out["user"].(map[string]any)
}

func (s *server) signup(studentID, email string) {
	s.t.Helper()
	w, _ := s.do(http.MethodPost, "/api/auth/signup", "", gin.H{
		"student_id": studentID, "first_name": "Ada", "last_name": "Lovelace",
		"email": email, "password": "secret1", "confirm_password": "secret1",
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{model.Validation("x"), http.StatusBadRequest},
		{model.Auth("x"), http.StatusUnauthorized},
		{model.Forbidden("x"), http.StatusForbidden},
		{model.NotVerified("x"), http.StatusForbidden},
		{model.NotFound("x"), http.StatusNotFound},
		{model.Duplicate("x"), http.StatusConflict},
		{model.Precondition("x"), http.StatusConflict},
		{model.Storage("x", errors.New("disk")), http.StatusInternalServerError},
		{model.Network("x", errors.New("dial")), http.StatusBadGateway},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestAttendanceLifecycle(t *testing.T) {
	s := newServer(t)
	adminToken, _ := s.login("admin@x.com", "adminpw")

	s.signup("S1", "ada@x.com")
	w, _ := s.do(http.MethodPost, "/api/auth/signup", "", gin.H{
		"student_id": "S2", "first_name": "A", "last_name": "B",
		"email": "ADA@x.com", "password": "secret1",
	})
	require.Equal(t, http.StatusConflict, w.Code)

	studentToken, student := s.login("ada@x.com", "secret1")
	require.Equal(t, "pending", student["status"])
	require.Nil(t, student["qrCode"])
	studentID := student["id"].(string)

	w, _ = s.do(http.MethodGet, "/api/users", studentToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	w, _ = s.do(http.MethodGet, "/api/users", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w, ev := s.do(http.MethodPost, "/api/events", adminToken, gin.H{
		"name": "Kickoff", "description": "Opening", "date": "2026-03-01", "startTime": "09:00", "endTime": "10:00",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	eventID := ev["id"].(string)

	w, out := s.do(http.MethodPost, "/api/attendance/manual", adminToken, gin.H{"eventId": eventID, "studentId": "S1"})
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "Student not verified", out["error"])

	w, verified := s.do(http.MethodPost, "/api/users/"+studentID+"/verify", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "verified", verified["status"])
	p, err := qr.DecodeDataURL(verified["qrCode"].(string))
	require.NoError(t, err)
	require.Equal(t, studentID, p.ID)

	w, _ = s.do(http.MethodPost, "/api/users/"+studentID+"/verify", adminToken, nil)
	require.Equal(t, http.StatusConflict, w.Code)

	w, sess := s.do(http.MethodGet, "/api/auth/session", studentToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "verified", sess["user"].(map[string]any)["status"], "session snapshot refreshed")
	require.Equal(t, session.DashboardPath, sess["redirect"])

	w, rec := s.do(http.MethodPost, "/api/attendance/scan", adminToken, gin.H{"eventId": eventID, "payload": p.Text()})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Equal(t, "Ada Lovelace", rec["studentName"])

	w, out = s.do(http.MethodPost, "/api/attendance/manual", adminToken, gin.H{"eventId": eventID, "studentId": "S1"})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "Attendance already recorded", out["error"])

	w, out = s.do(http.MethodPost, "/api/attendance/scan", adminToken, gin.H{"eventId": eventID, "payload": "garbage"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Invalid QR code", out["error"])

	w, _ = s.do(http.MethodGet, "/api/me/summary", studentToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sum attendance.StudentSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sum))
	require.Equal(t, 1, sum.Attended)
	require.Equal(t, 100, sum.Rate)

	w, _ = s.do(http.MethodGet, "/api/reports/event", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rep directory.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rep))
	require.Equal(t, 100, rep.Events[0].Rate)

	w, _ = s.do(http.MethodDelete, "/api/users/"+studentID, adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(http.MethodGet, "/api/auth/session", studentToken, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code, "deleted user's session ends")

	w, _ = s.do(http.MethodGet, "/api/attendance?eventId="+eventID, adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var recs []model.AttendanceRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recs))
	require.Len(t, recs, 1, "attendance outlives the user")
}

func TestLoginFailures(t *testing.T) {
	s := newServer(t)

	w, out := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "admin@x.com", "password": "nope"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Invalid email or password", out["error"])

	w, _ = s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "", "password": ""})
	require.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginSetsCookieAndLogoutClearsIt(t *testing.T) {
	s := newServer(t)

	w, out := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "admin@x.com", "password": "adminpw"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, session.AdminPath, out["redirect"])
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, auth.CookieName, cookies[0].Name)
	require.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.AddCookie(cookies[0])
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	token := out["token"].(string)
	w, _ = s.do(http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(http.MethodGet, "/api/auth/session", token, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStudentsOnlyEditThemselves(t *testing.T) {
	s := newServer(t)
	adminToken, admin := s.login("admin@x.com", "adminpw")
	s.signup("S1", "ada@x.com")
	token, me := s.login("ada@x.com", "secret1")

	w, _ := s.do(http.MethodGet, "/api/users/"+admin["id"].(string), token, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w, u := s.do(http.MethodPut, "/api/users/"+me["id"].(string), token, gin.H{
		"firstName": "Augusta", "lastName": "King", "email": "ada@x.com",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "Augusta", u["firstName"])

	w, _ = s.do(http.MethodDelete, "/api/users/"+admin["id"].(string), adminToken, nil)
	require.Equal(t, http.StatusConflict, w.Code, "admins cannot delete themselves")

	w, _ = s.do(http.MethodPut, "/api/users/"+me["id"].(string)+"/role", adminToken, gin.H{"role": "owner"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	w, promoted := s.do(http.MethodPut, "/api/users/"+me["id"].(string)+"/role", adminToken, gin.H{"role": "admin"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "admin", promoted["role"])
	require.Equal(t, "verified", promoted["status"])

	w, _ = s.do(http.MethodGet, "/api/stats/dashboard", token, nil)
	require.Equal(t, http.StatusOK, w.Code, "refreshed session carries the new role")
}

func TestEventRoutes(t *testing.T) {
	s := newServer(t)
	adminToken, _ := s.login("admin@x.com", "adminpw")

	w, out := s.do(http.MethodPost, "/api/events", adminToken, gin.H{"name": "x"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "All fields are required", out["error"])

	_, ev := s.do(http.MethodPost, "/api/events", adminToken, gin.H{
		"name": "Kickoff", "description": "Opening", "date": "2026-03-01", "startTime": "09:00", "endTime": "10:00",
	})
	id := ev["id"].(string)

	w, ev = s.do(http.MethodPost, "/api/events/"+id+"/toggle", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "completed", ev["status"])

	w, _ = s.do(http.MethodGet, "/api/events?status=bogus", adminToken, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodDelete, "/api/events/"+id, adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(http.MethodDelete, "/api/events/"+id, adminToken, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(http.MethodGet, "/api/reports/weekly", adminToken, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScanImage(t *testing.T) {
	s := newServer(t)
	adminToken, admin := s.login("admin@x.com", "adminpw")
	_, ev := s.do(http.MethodPost, "/api/events", adminToken, gin.H{
		"name": "Kickoff", "description": "Opening", "date": "2026-03-01", "startTime": "09:00", "endTime": "10:00",
	})

	png, err := qr.PNG(qr.Payload{StudentID: "-", ID: admin["id"].(string), Name: "Admin User"})
	require.NoError(t, err)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("eventId", ev["id"].(string)))
	part, err := mw.CreateFormFile("frame", "frame.png")
	require.NoError(t, err)
	_, err = part.Write(png)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/attendance/scan-image", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	w, out := s.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok", out["status"])
}

func TestPages(t *testing.T) {
	s := newServer(t)
	dir := t.TempDir()
	for _, name := range []string{"login.html", "signup.html", "admin.html", "dashboard.html"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
	}
	require.False(t, s.h.RegisterPages(gin.New(), filepath.Join(dir, "missing")))
	require.True(t, s.h.RegisterPages(s.engine, dir))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, session.LoginPath, w.Header().Get("Location"))

	req = httptest.NewRequest(http.MethodGet, "/login", nil)
	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "login.html", w.Body.String())
}
