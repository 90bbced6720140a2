package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"city-spots/internal/service"
)

// AttendanceHandler sirve el registro de asistencia del usuario
// autenticado.
type AttendanceHandler struct {
	logger     *zap.Logger
	attendance *service.AttendanceService
}

func NewAttendanceHandler(logger *zap.Logger, attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{logger: logger, attendance: attendance}
}

// GetRecord maneja GET /me/record. Un usuario sin registro recibe 404;
// el cliente lo trata como conjunto vacio.
func (h *AttendanceHandler) GetRecord(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	rec, err := h.attendance.GetRecord(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
			return
		}
		h.logger.Error("get attendance record failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"record": rec})
}

// UpdateRecord maneja PUT /me/record: reemplaza el listado completo.
func (h *AttendanceHandler) UpdateRecord(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	var req struct {
		AttendedIDs []string  `json:"attended_ids"`
		UpdatedAt   time.Time `json:"updated_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid update record request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.attendance.UpdateRecord(c.Request.Context(), claims.UserID, req.AttendedIDs, req.UpdatedAt); err != nil {
		h.logger.Error("update attendance record failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save record"})
		return
	}

	c.Status(http.StatusNoContent)
}
