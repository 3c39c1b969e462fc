package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"qrattend/internal/apperror"
	"qrattend/internal/attendance"
	"qrattend/internal/qr"
	"qrattend/internal/response"
)

type createSessionRequest struct {
	Name    string `json:"name"`
	Replace bool   `json:"replace"`
}

type activeSessionResponse struct {
	Session  attendance.Session `json:"session"`
	DeepLink string             `json:"deepLink"`
}

func (h *Handler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	s, err := h.ledger.CreateSession(c.Request.Context(), req.Name, req.Replace)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.metrics.Sessions.WithLabelValues("created").Inc()
	h.logger.Info("session created", zap.String("session", s.ID), zap.String("name", s.Name), zap.Bool("replace", req.Replace))
	response.Success(c, http.StatusCreated, s)
}

func (h *Handler) ListSessions(c *gin.Context) {
	sessions, err := h.ledger.ListSessions(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, sessions)
}

func (h *Handler) ActiveSession(c *gin.Context) {
	s, ok, err := h.ledger.ActiveSession(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !ok {
		h.writeError(c, attendance.ErrNotFound)
		return
	}
	link, err := qr.DeepLink(h.publicBase, s.ID, "")
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, activeSessionResponse{Session: s, DeepLink: link})
}

func (h *Handler) EndSession(c *gin.Context) {
	s, err := h.ledger.EndSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.metrics.Sessions.WithLabelValues("ended").Inc()
	h.logger.Info("session ended", zap.String("session", s.ID))
	response.Success(c, http.StatusOK, s)
}

// SessionQR renders the deep link of a session. With publish=1 the PNG is uploaded
// and its public URL returned instead.
func (h *Handler) SessionQR(c *gin.Context) {
	ctx := c.Request.Context()
	s, err := h.ledger.GetSession(ctx, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	level, err := qr.ParseLevel(c.Query("level"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	size := qr.DefaultSize
	if v := c.Query("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 64 || n > 2048 {
			badRequest(c, "size must be between 64 and 2048")
			return
		}
		size = n
	}
	link, err := qr.DeepLink(h.publicBase, s.ID, c.Query("name"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	png, err := qr.Render(link, level, size)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if c.Query("publish") != "1" {
		c.Data(http.StatusOK, "image/png", png)
		return
	}
	if h.cdn == nil {
		response.Error(c, http.StatusServiceUnavailable, apperror.CodePublishDisabled, "image hosting is not configured")
		return
	}
	res, err := h.cdn.UploadPNG(ctx, png, "session-"+s.ID)
	if err != nil {
		h.logger.Warn("qr upload failed", zap.String("session", s.ID), zap.Error(err))
		response.Error(c, http.StatusBadGateway, apperror.CodeUpstreamError, "image upload failed")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"url": res.SecureURL, "publicId": res.PublicID, "deepLink": link})
}

func (h *Handler) ClearAll(c *gin.Context) {
	if err := h.ledger.ClearAll(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	h.logger.Warn("all attendance data cleared", zap.String("ip", c.ClientIP()))
	response.Success(c, http.StatusOK, gin.H{"cleared": true})
}

// Feed upgrades to a websocket receiving session snapshots and notifications.
func (h *Handler) Feed(c *gin.Context) {
	if h.hub == nil {
		response.Error(c, http.StatusServiceUnavailable, apperror.CodeInternalError, "live feed is disabled")
		return
	}
	if err := h.hub.ServeWS(c.Writer, c.Request); err != nil {
		h.logger.Debug("feed upgrade failed", zap.Error(err))
	}
}
