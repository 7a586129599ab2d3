package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/config"
	"rollcall/internal/kvstore"
	"rollcall/internal/roster"
)

func testConfig() config.App {
	return config.App{
		Env:           "test",
		Timezone:      "UTC",
		JWTIssuer:     "rollcall",
		JWTSigningKey: "test-secret",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		SeedEnabled:   true,
	}
}

func newTestRouter(t *testing.T, cfg config.App) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	kv := kvstore.NewMemory()
	repo := roster.NewRepository(kv, time.UTC)
	svc := roster.NewService(repo)
	h := New(repo, svc, kv, cfg)
	r := gin.New()
	h.Register(r)
	return r
}

func doJSON(r *gin.Engine, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, into any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), into))
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, testConfig())
	w := doJSON(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateStudent(t *testing.T) {
	r := newTestRouter(t, testConfig())

	w := doJSON(r, http.MethodPost, "/students", map[string]string{
		"name": "X", "email": "x@y.com", "studentNumber": "1",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var s roster.Student
	decode(t, w, &s)
	assert.Equal(t, s.ID, s.QRCode)
	assert.Equal(t, "X", s.Name)
}

func TestCreateStudent_MissingField(t *testing.T) {
	r := newTestRouter(t, testConfig())

	w := doJSON(r, http.MethodPost, "/students", map[string]string{
		"name": "X", "studentNumber": "1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]string
	decode(t, w, &body)
	assert.NotEmpty(t, body["error"])
}

func TestUpdateAndDeleteStudent_Unknown(t *testing.T) {
	r := newTestRouter(t, testConfig())

	w := doJSON(r, http.MethodPut, "/students/STU404", map[string]string{"name": "Y"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodDelete, "/students/STU404", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckInFlow(t *testing.T) {
	r := newTestRouter(t, testConfig())

	w := doJSON(r, http.MethodPost, "/students", map[string]string{
		"name": "Ada", "email": "ada@example.edu", "studentNumber": "1001",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var student roster.Student
	decode(t, w, &student)

	// first scan succeeds
	w = doJSON(r, http.MethodPost, "/attendance/checkin", map[string]string{"qrCode": student.QRCode})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Student roster.Student          `json:"student"`
		Record  roster.AttendanceRecord `json:"record"`
	}
	decode(t, w, &resp)
	assert.Equal(t, student.ID, resp.Record.StudentID)
	assert.Equal(t, roster.StatusPresent, resp.Record.Status)

	// second scan the same day is a conflict naming the student
	w = doJSON(r, http.MethodPost, "/attendance/checkin", map[string]string{"qrCode": student.QRCode})
	assert.Equal(t, http.StatusConflict, w.Code)
	var body map[string]string
	decode(t, w, &body)
	assert.Contains(t, body["error"], "Ada")

	// unknown code
	w = doJSON(r, http.MethodPost, "/attendance/checkin", map[string]string{"qrCode": "STU999"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// missing code
	w = doJSON(r, http.MethodPost, "/attendance/checkin", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// exactly one record landed
	w = doJSON(r, http.MethodGet, "/attendance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var records []roster.AttendanceRecord
	decode(t, w, &records)
	assert.Len(t, records, 1)

	w = doJSON(r, http.MethodGet, "/attendance/today", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &records)
	assert.Len(t, records, 1)
}

func TestAttendanceStats(t *testing.T) {
	r := newTestRouter(t, testConfig())

	w := doJSON(r, http.MethodPost, "/admin/seed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var seeded struct {
		Students []roster.Student `json:"students"`
		Count    int              `json:"count"`
	}
	decode(t, w, &seeded)
	require.Equal(t, 5, seeded.Count)

	w = doJSON(r, http.MethodPost, "/attendance/checkin", map[string]string{"qrCode": seeded.Students[0].QRCode})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/attendance/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats roster.Stats
	decode(t, w, &stats)
	assert.Equal(t, 5, stats.TotalStudents)
	assert.Equal(t, 1, stats.PresentToday)
	assert.InDelta(t, 0.2, stats.Rate, 1e-9)
}

func TestStudentQRCode(t *testing.T) {
	r := newTestRouter(t, testConfig())

	w := doJSON(r, http.MethodPost, "/students", map[string]string{
		"name": "Ada", "email": "ada@example.edu", "studentNumber": "1001",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var student roster.Student
	decode(t, w, &student)

	req := httptest.NewRequest(http.MethodGet, "/students/"+student.ID+"/qrcode.png", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Body.Bytes())

	req = httptest.NewRequest(http.MethodGet, "/students/STU404/qrcode.png", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthProtectsMutatingRoutes(t *testing.T) {
	cfg := testConfig()
	cfg.AuthEnabled = true
	r := newTestRouter(t, cfg)

	// no token
	w := doJSON(r, http.MethodPost, "/students", map[string]string{
		"name": "X", "email": "x@y.com", "studentNumber": "1",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// read routes stay open
	w = doJSON(r, http.MethodGet, "/students", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// register a device, use its access token
	w = doJSON(r, http.MethodPost, "/devices/register", map[string]string{"device_id": "scanner-1"})
	require.Equal(t, http.StatusCreated, w.Code)
	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	decode(t, w, &tokens)
	require.NotEmpty(t, tokens.AccessToken)

	w = doJSON(r, http.MethodPost, "/students", map[string]string{
		"name": "X", "email": "x@y.com", "studentNumber": "1",
	}, "Authorization", "Bearer "+tokens.AccessToken)
	assert.Equal(t, http.StatusCreated, w.Code)
}
