package handler

import (
	"errors"
	"strings"

	"github.com/YuktaYBhat/Placement-cell-sub000/internal/drive"
	"github.com/YuktaYBhat/Placement-cell-sub000/internal/util"

	"github.com/gin-gonic/gin"
)

// SessionHandler drives the attendance window of a round.
type SessionHandler struct {
	Engine *drive.Engine
}

func NewSessionHandler(eng *drive.Engine) *SessionHandler {
	return &SessionHandler{Engine: eng}
}

type updateSessionReq struct {
	Action string `json:"action" binding:"required"` // TEMP_CLOSE, PERM_CLOSE or REOPEN
}

func (h *SessionHandler) StartSession(c *gin.Context) {
	roundID, ok := uintParam(c, "roundId")
	if !ok {
		return
	}
	sess, err := h.Engine.StartSession(c.Request.Context(), roundID)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"session": toSessionResp(sess)})
}

func (h *SessionHandler) UpdateSession(c *gin.Context) {
	sessionID, ok := uintParam(c, "sessionId")
	if !ok {
		return
	}
	var req updateSessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Join(drive.ErrValidation, err))
		return
	}

	action := drive.SessionAction(strings.ToUpper(strings.TrimSpace(req.Action)))
	sess, err := h.Engine.UpdateSession(c.Request.Context(), sessionID, action)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{"session": toSessionResp(sess)})
}
