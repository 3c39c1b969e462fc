package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"qrattend/internal/attendance"
	"qrattend/internal/response"
)

func (h *Handler) ListRecords(c *gin.Context) {
	views, err := h.ledger.ListRecords(c.Request.Context(), attendance.Filter{SessionID: c.Query("session")})
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, views)
}

// ExportRecords downloads the filtered records as a spreadsheet-friendly CSV.
func (h *Handler) ExportRecords(c *gin.Context) {
	views, err := h.ledger.ListRecords(c.Request.Context(), attendance.Filter{SessionID: c.Query("session")})
	if err != nil {
		h.writeError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := attendance.WriteCSV(&buf, views, h.loc); err != nil {
		h.writeError(c, err)
		return
	}
	filename := fmt.Sprintf("attendance_%s.csv", h.now().In(h.loc).Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
