package handler

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/YuktaYBhat/Placement-cell-sub000/internal/drive"
	"github.com/YuktaYBhat/Placement-cell-sub000/internal/models"
	"github.com/YuktaYBhat/Placement-cell-sub000/internal/util"

	"github.com/gin-gonic/gin"
)

// AttendanceHandler serves the scanner and the attendance sheet.
type AttendanceHandler struct {
	Engine   *drive.Engine
	PageSize int
}

func NewAttendanceHandler(eng *drive.Engine, pageSize int) *AttendanceHandler {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &AttendanceHandler{Engine: eng, PageSize: pageSize}
}

type scanReq struct {
	Token string `json:"token" binding:"required"`
}

type outcomeReq struct {
	Status string `json:"status" binding:"required"` // PASSED or FAILED
}

type attendanceResp struct {
	ID        uint                    `json:"id"`
	UserID    uint                    `json:"user_id"`
	JobID     uint                    `json:"job_id"`
	RoundID   uint                    `json:"round_id"`
	SessionID uint                    `json:"session_id"`
	Status    models.AttendanceStatus `json:"status"`
	MarkedAt  time.Time               `json:"marked_at"`
}

func toAttendanceResp(a models.RoundAttendance) attendanceResp {
	return attendanceResp{
		ID:        a.ID,
		UserID:    a.UserID,
		JobID:     a.JobID,
		RoundID:   a.RoundID,
		SessionID: a.SessionID,
		Status:    a.Status,
		MarkedAt:  a.MarkedAt,
	}
}

// Scan redeems a token read from a student's QR code.
func (h *AttendanceHandler) Scan(c *gin.Context) {
	var req scanReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Join(drive.ErrValidation, err))
		return
	}

	red, err := h.Engine.RedeemToken(c.Request.Context(), strings.TrimSpace(req.Token))
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{
		"user_id":       red.UserID,
		"round_id":      red.RoundID,
		"session_id":    red.SessionID,
		"attendance_id": red.AttendanceID,
		"outcome":       red.Outcome,
	})
}

// SetOutcome records the pass/fail decision on an attendance row.
func (h *AttendanceHandler) SetOutcome(c *gin.Context) {
	attendanceID, ok := uintParam(c, "attendanceId")
	if !ok {
		return
	}
	var req outcomeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Join(drive.ErrValidation, err))
		return
	}

	status := models.AttendanceStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	att, err := h.Engine.SetAttendanceOutcome(c.Request.Context(), attendanceID, status)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"attendance": toAttendanceResp(att)})
}

// ListAttendance pages through a job's ledger, filtered by round and status.
func (h *AttendanceHandler) ListAttendance(c *gin.Context) {
	jobID, ok := uintParam(c, "jobId")
	if !ok {
		return
	}

	var f drive.AttendanceFilter
	if s := c.Query("round_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			respondError(c, errors.Join(drive.ErrValidation, err))
			return
		}
		f.RoundID = uint(id)
	}
	f.Status = models.AttendanceStatus(strings.ToUpper(c.Query("status")))
	page, limit := pageParams(c, "limit", h.PageSize)

	res, err := h.Engine.ListAttendance(c.Request.Context(), jobID, f, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]attendanceResp, 0, len(res.Items))
	for _, a := range res.Items {
		items = append(items, toAttendanceResp(a))
	}
	util.Success(c, util.Response{
		"items": items,
		"total": res.Total,
		"page":  res.Page,
		"limit": res.Limit,
	})
}
