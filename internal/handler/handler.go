package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"

	"rollcall/internal/auth"
	"rollcall/internal/config"
	"rollcall/internal/kvstore"
	"rollcall/internal/metrics"
	"rollcall/internal/roster"
)

// Handler exposes the repository and check-in service over REST.
type Handler struct {
	repo *roster.Repository
	svc  *roster.Service
	kv   kvstore.Store
	cfg  config.App
}

func New(repo *roster.Repository, svc *roster.Service, kv kvstore.Store, cfg config.App) *Handler {
	return &Handler{repo: repo, svc: svc, kv: kv, cfg: cfg}
}

// Register wires all routes onto the engine. Mutating routes sit behind
// bearer auth when it is enabled.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/healthz", h.Health)

	r.GET("/students", h.ListStudents)
	r.GET("/students/:id/qrcode.png", h.StudentQRCode)
	r.GET("/attendance", h.ListAttendance)
	r.GET("/attendance/today", h.ListAttendanceToday)
	r.GET("/attendance/stats", h.AttendanceStats)

	r.POST("/devices/register", h.RegisterDevice)

	mutating := r.Group("")
	if h.cfg.AuthEnabled {
		mutating.Use(auth.RequireToken(h.cfg.JWTSigningKey, h.cfg.JWTIssuer))
	}
	mutating.POST("/students", h.CreateStudent)
	mutating.PUT("/students/:id", h.UpdateStudent)
	mutating.DELETE("/students/:id", h.DeleteStudent)
	mutating.POST("/attendance/checkin", h.CheckIn)

	if h.cfg.SeedEnabled && h.cfg.Env != "production" && h.cfg.Env != "prod" {
		mutating.POST("/admin/seed", h.Seed)
	}
}

// ---------- Health ----------

func (h *Handler) Health(c *gin.Context) {
	storeHealthy := h.kv.Healthy(c.Request.Context())
	status := http.StatusOK
	if !storeHealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": "ok", "store": storeHealthy})
}

// ---------- Students ----------

func (h *Handler) ListStudents(c *gin.Context) {
	students, err := h.repo.ListStudents(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, students)
}

type createStudentRequest struct {
	Name          string `json:"name" binding:"required"`
	Email         string `json:"email" binding:"required"`
	StudentNumber string `json:"studentNumber" binding:"required"`
	Country       string `json:"country"`
}

func (h *Handler) CreateStudent(c *gin.Context) {
	var req createStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, email and studentNumber are required"})
		return
	}
	student, err := h.repo.CreateStudent(c.Request.Context(), roster.NewStudent{
		Name:          req.Name,
		Email:         req.Email,
		StudentNumber: req.StudentNumber,
		Country:       req.Country,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, student)
}

func (h *Handler) UpdateStudent(c *gin.Context) {
	var patch roster.StudentPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	student, err := h.repo.UpdateStudent(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, student)
}

func (h *Handler) DeleteStudent(c *gin.Context) {
	if err := h.repo.DeleteStudent(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// StudentQRCode renders the student's scan code as a PNG badge.
func (h *Handler) StudentQRCode(c *gin.Context) {
	student, err := h.repo.GetStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	png, err := qrcode.Encode(student.QRCode, qrcode.Medium, 256)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// ---------- Attendance ----------

func (h *Handler) ListAttendance(c *gin.Context) {
	records, err := h.repo.ListAttendance(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) ListAttendanceToday(c *gin.Context) {
	records, err := h.repo.ListAttendanceToday(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) AttendanceStats(c *gin.Context) {
	stats, err := h.svc.TodayStats(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

type checkInRequest struct {
	QRCode string `json:"qrCode" binding:"required"`
}

func (h *Handler) CheckIn(c *gin.Context) {
	var req checkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "qrCode is required"})
		return
	}
	student, record, err := h.svc.CheckIn(c.Request.Context(), req.QRCode)
	if err != nil {
		metrics.CheckinsTotal.WithLabelValues(checkinOutcome(err)).Inc()
		h.writeError(c, err)
		return
	}
	metrics.CheckinsTotal.WithLabelValues(metrics.CheckinOK).Inc()
	c.JSON(http.StatusOK, gin.H{"student": student, "record": record})
}

func checkinOutcome(err error) string {
	var dup *roster.AlreadyCheckedInError
	switch {
	case errors.As(err, &dup):
		return metrics.CheckinDuplicate
	case errors.Is(err, roster.ErrStudentNotFound):
		return metrics.CheckinUnknownCode
	default:
		return metrics.CheckinError
	}
}

// ---------- Devices ----------

type registerDeviceRequest struct {
	DeviceID string `json:"device_id" binding:"required"`
}

// RegisterDevice records a scanner device and issues it a token pair.
func (h *Handler) RegisterDevice(c *gin.Context) {
	var req registerDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "device_id is required"})
		return
	}
	if err := h.repo.RegisterDevice(c.Request.Context(), req.DeviceID); err != nil {
		h.writeError(c, err)
		return
	}
	tokens, err := auth.Issue(req.DeviceID, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL, h.cfg.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	if err := h.repo.SaveRefreshToken(c.Request.Context(), req.DeviceID, tokens.RefreshToken, tokens.RefreshExp); err != nil {
		log.Printf("save refresh token failed: %v", err)
	}
	c.JSON(http.StatusCreated, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

// ---------- Admin ----------

func (h *Handler) Seed(c *gin.Context) {
	students, err := h.repo.SeedSampleData(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students, "count": len(students)})
}

// writeError maps service errors onto status codes. Storage failures
// are logged and surface as a generic 500.
func (h *Handler) writeError(c *gin.Context, err error) {
	var dup *roster.AlreadyCheckedInError
	switch {
	case errors.As(err, &dup):
		c.JSON(http.StatusConflict, gin.H{"error": dup.Error()})
	case errors.Is(err, roster.ErrStudentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
	case errors.Is(err, roster.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		log.Printf("request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
