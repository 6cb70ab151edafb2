package handler

import (
	"errors"
	"strings"
	"time"

	"github.com/YuktaYBhat/Placement-cell-sub000/internal/drive"
	"github.com/YuktaYBhat/Placement-cell-sub000/internal/models"
	"github.com/YuktaYBhat/Placement-cell-sub000/internal/util"

	"github.com/gin-gonic/gin"
)

// RoundHandler serves the admin drive-management screen.
type RoundHandler struct {
	Engine *drive.Engine
}

func NewRoundHandler(eng *drive.Engine) *RoundHandler {
	return &RoundHandler{Engine: eng}
}

// ---------- request/response ----------

type createRoundReq struct {
	Name  string `json:"name" binding:"required"`
	Order int    `json:"order"`
}

type renameRoundReq struct {
	Name string `json:"name" binding:"required"`
}

type reorderReq struct {
	Direction string `json:"direction" binding:"required"`
}

type roundResp struct {
	ID        uint      `json:"id"`
	JobID     uint      `json:"job_id"`
	Name      string    `json:"name"`
	Order     int       `json:"order"`
	IsRemoved bool      `json:"is_removed"`
	CreatedAt time.Time `json:"created_at"`
}

type sessionResp struct {
	ID        uint                 `json:"id"`
	RoundID   uint                 `json:"round_id"`
	Status    models.SessionStatus `json:"status"`
	StartTime time.Time            `json:"start_time"`
	EndTime   *time.Time           `json:"end_time,omitempty"`
}

type countsResp struct {
	Total    int64 `json:"total"`
	Attended int64 `json:"attended"`
	Passed   int64 `json:"passed"`
	Failed   int64 `json:"failed"`
}

type roundSummaryResp struct {
	roundResp
	LatestSession *sessionResp `json:"latest_session"`
	Attendance    countsResp   `json:"attendance"`
}

func toRoundResp(r models.Round) roundResp {
	return roundResp{
		ID:        r.ID,
		JobID:     r.JobID,
		Name:      r.Name,
		Order:     r.Order,
		IsRemoved: r.IsRemoved,
		CreatedAt: r.CreatedAt,
	}
}

func toRoundList(rounds []models.Round) []roundResp {
	items := make([]roundResp, 0, len(rounds))
	for _, r := range rounds {
		items = append(items, toRoundResp(r))
	}
	return items
}

func toSessionResp(s models.RoundSession) sessionResp {
	return sessionResp{
		ID:        s.ID,
		RoundID:   s.RoundID,
		Status:    s.Status,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
	}
}

// ---------- handlers ----------

func (h *RoundHandler) ListRounds(c *gin.Context) {
	jobID, ok := uintParam(c, "jobId")
	if !ok {
		return
	}
	summaries, err := h.Engine.ListRounds(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]roundSummaryResp, 0, len(summaries))
	for _, s := range summaries {
		item := roundSummaryResp{
			roundResp: toRoundResp(s.Round),
			Attendance: countsResp{
				Total:    s.Counts.Total,
				Attended: s.Counts.Attended,
				Passed:   s.Counts.Passed,
				Failed:   s.Counts.Failed,
			},
		}
		if s.LatestSession != nil {
			sr := toSessionResp(*s.LatestSession)
			item.LatestSession = &sr
		}
		items = append(items, item)
	}
	util.Success(c, util.Response{"items": items})
}

// CreateRound adds a round; an omitted order appends it after the last one.
func (h *RoundHandler) CreateRound(c *gin.Context) {
	jobID, ok := uintParam(c, "jobId")
	if !ok {
		return
	}
	var req createRoundReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Join(drive.ErrValidation, err))
		return
	}

	r, err := h.Engine.CreateRound(c.Request.Context(), jobID, strings.TrimSpace(req.Name), req.Order)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"round": toRoundResp(r)})
}

func (h *RoundHandler) RenameRound(c *gin.Context) {
	roundID, ok := uintParam(c, "roundId")
	if !ok {
		return
	}
	var req renameRoundReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Join(drive.ErrValidation, err))
		return
	}

	r, err := h.Engine.RenameRound(c.Request.Context(), roundID, strings.TrimSpace(req.Name))
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"round": toRoundResp(r)})
}

// ReorderRound swaps a round with its visible neighbour. A lost race on the
// order index is retried once.
func (h *RoundHandler) ReorderRound(c *gin.Context) {
	roundID, ok := uintParam(c, "roundId")
	if !ok {
		return
	}
	var req reorderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Join(drive.ErrValidation, err))
		return
	}
	dir := drive.Direction(strings.ToLower(req.Direction))

	rounds, err := h.Engine.ReorderRound(c.Request.Context(), roundID, dir)
	if errors.Is(err, drive.ErrConflict) {
		rounds, err = h.Engine.ReorderRound(c.Request.Context(), roundID, dir)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"rounds": toRoundList(rounds)})
}

func (h *RoundHandler) RemoveRound(c *gin.Context) {
	roundID, ok := uintParam(c, "roundId")
	if !ok {
		return
	}
	r, err := h.Engine.RemoveRound(c.Request.Context(), roundID)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"round": toRoundResp(r)})
}

func (h *RoundHandler) RestoreRound(c *gin.Context) {
	roundID, ok := uintParam(c, "roundId")
	if !ok {
		return
	}
	r, err := h.Engine.RestoreRound(c.Request.Context(), roundID)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"round": toRoundResp(r)})
}
