package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"qrattend/internal/attendance"
	"qrattend/internal/qr"
	"qrattend/internal/queue"
	"qrattend/internal/response"
)

const maxScanBytes = 8 << 20

type checkinRequest struct {
	Session    string `json:"session" form:"session"`
	Name       string `json:"name" form:"name"`
	StudentID  string `json:"student_id" form:"student_id"`
	EmployeeID string `json:"employee_id" form:"employee_id"`
	CheckType  string `json:"check_type" form:"check_type"`
	HasParking bool   `json:"has_parking" form:"has_parking"`
}

func (h *Handler) Checkin(c *gin.Context) {
	var req checkinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	h.submit(c, req)
}

// ScanCheckin decodes the QR code in an uploaded camera frame and submits with it.
// A name carried by the deep link fills in a missing name field.
func (h *Handler) ScanCheckin(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxScanBytes)
	var req checkinRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "invalid form")
		return
	}
	file, _, err := c.Request.FormFile("image")
	if err != nil {
		badRequest(c, "image field required")
		return
	}
	defer file.Close()

	text, err := qr.Decode(file)
	if errors.Is(err, qr.ErrNoCode) {
		badRequest(c, "no QR code found in image")
		return
	}
	if err != nil {
		badRequest(c, "unreadable image")
		return
	}
	req.Session = text
	if strings.TrimSpace(req.Name) == "" {
		req.Name = linkName(text)
	}
	h.submit(c, req)
}

func (h *Handler) submit(c *gin.Context, req checkinRequest) {
	ctx := c.Request.Context()
	rec, err := h.ledger.Submit(ctx, req.Session,
		attendance.Identity{Name: req.Name, StudentID: req.StudentID, EmployeeID: req.EmployeeID},
		attendance.Fields{CheckType: attendance.CheckType(req.CheckType), HasParking: req.HasParking},
	)
	h.metrics.ObserveSubmit(err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if h.queue != nil {
		if err := h.queue.Publish(ctx, queue.NewCheckin(rec.Key, rec.SessionID)); err != nil {
			h.logger.Warn("queue publish failed", zap.String("record", rec.Key), zap.Error(err))
		}
	}
	h.logger.Info("check-in accepted",
		zap.String("record", rec.Key),
		zap.String("session", rec.SessionID),
		zap.String("check_type", string(rec.CheckType)),
	)
	response.Success(c, http.StatusCreated, rec)
}

// Prefill echoes the deep-link parameters so the check-in form can be filled in,
// and tells whether the linked session is still the active one.
func (h *Handler) Prefill(c *gin.Context) {
	session := strings.TrimSpace(c.Query("session"))
	current := false
	if session != "" {
		active, ok, err := h.ledger.ActiveSession(c.Request.Context())
		if err != nil {
			h.writeError(c, err)
			return
		}
		current = ok && active.ID == session
	}
	response.Success(c, http.StatusOK, gin.H{
		"session": session,
		"name":    c.Query("name"),
		"current": current,
	})
}

func linkName(text string) string {
	u, err := url.Parse(strings.TrimSpace(text))
	if err != nil {
		return ""
	}
	return u.Query().Get("name")
}
