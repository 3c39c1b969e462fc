// Package handler exposes the attendance ledger over HTTP.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"qrattend/internal/apperror"
	"qrattend/internal/attendance"
	"qrattend/internal/cloudinary"
	"qrattend/internal/metrics"
	"qrattend/internal/notify"
	"qrattend/internal/queue"
	"qrattend/internal/response"
)

// Deps are the collaborators of Handler. Queue, Hub, CDN and Health may be nil.
type Deps struct {
	Ledger     *attendance.Ledger
	Queue      queue.Queue
	Hub        *notify.Hub
	CDN        *cloudinary.Client
	Metrics    *metrics.Metrics
	PublicBase string
	Location   *time.Location
	Health     func(ctx context.Context) map[string]bool
	Logger     *zap.Logger
}

type Handler struct {
	ledger     *attendance.Ledger
	queue      queue.Queue
	hub        *notify.Hub
	cdn        *cloudinary.Client
	metrics    *metrics.Metrics
	publicBase string
	loc        *time.Location
	health     func(ctx context.Context) map[string]bool
	logger     *zap.Logger
	now        func() time.Time
}

func New(d Deps) *Handler {
	l := zap.L().Named("handler")
	if d.Logger != nil {
		l = d.Logger.Named("handler")
	}
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		ledger:     d.Ledger,
		queue:      d.Queue,
		hub:        d.Hub,
		cdn:        d.CDN,
		metrics:    d.Metrics,
		publicBase: d.PublicBase,
		loc:        loc,
		health:     d.Health,
		logger:     l,
		now:        time.Now,
	}
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.Healthz)
	r.GET("/checkin", h.Prefill)

	v1 := r.Group("/v1")
	v1.POST("/sessions", h.CreateSession)
	v1.GET("/sessions", h.ListSessions)
	v1.GET("/sessions/active", h.ActiveSession)
	v1.POST("/sessions/:id/end", h.EndSession)
	v1.GET("/sessions/:id/qr", h.SessionQR)

	v1.POST("/checkins", h.Checkin)
	v1.POST("/checkins/scan", h.ScanCheckin)

	v1.GET("/records", h.ListRecords)
	v1.GET("/records/export", h.ExportRecords)
	v1.DELETE("/data", h.ClearAll)

	v1.GET("/feed", h.Feed)
}

func (h *Handler) Healthz(c *gin.Context) {
	checks := map[string]bool{}
	if h.health != nil {
		checks = h.health(c.Request.Context())
	}
	status := http.StatusOK
	for _, ok := range checks {
		if !ok {
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, gin.H{"status": http.StatusText(status), "checks": checks})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	appErr := toAppError(err)
	fields := []zap.Field{
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", appErr.HTTPStatus),
		zap.String("code", appErr.Code),
		zap.String("request_id", c.GetString("request_id")),
	}
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		h.logger.Error("request failed", append(fields, zap.Error(err))...)
	} else {
		h.logger.Debug("request rejected", fields...)
	}
	response.AppError(c, appErr)
}

func badRequest(c *gin.Context, msg string) {
	response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, msg)
}
