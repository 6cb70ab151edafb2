package handler

import (
	"log"
	"net/http"
	"slices"
	"time"

	"github.com/YuktaYBhat/Placement-cell-sub000/internal/drive"
	"github.com/YuktaYBhat/Placement-cell-sub000/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 10 * time.Second

// StudentHandler serves the student's view of a drive.
type StudentHandler struct {
	Engine          *drive.Engine
	RefreshInterval time.Duration
	upgrader        websocket.Upgrader
}

func NewStudentHandler(eng *drive.Engine, refresh time.Duration, allowedOrigins []string) *StudentHandler {
	if refresh <= 0 {
		refresh = 55 * time.Second
	}
	return &StudentHandler{
		Engine:          eng,
		RefreshInterval: refresh,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// non-browser clients send no Origin
				return origin == "" || slices.Contains(allowedOrigins, origin) || slices.Contains(allowedOrigins, "*")
			},
		},
	}
}

type roundStatusResp struct {
	RoundID        uint             `json:"round_id"`
	RoundName      string           `json:"round_name"`
	RoundOrder     int              `json:"round_order"`
	Status         drive.RoundState `json:"status"`
	SessionID      uint             `json:"session_id,omitempty"`
	Token          string           `json:"token,omitempty"`
	TokenExpiresAt *time.Time       `json:"token_expires_at,omitempty"`
	Attendance     *attendanceResp  `json:"attendance,omitempty"`
}

func toStatusList(statuses []drive.RoundStatus) []roundStatusResp {
	items := make([]roundStatusResp, 0, len(statuses))
	for _, s := range statuses {
		item := roundStatusResp{
			RoundID:    s.RoundID,
			RoundName:  s.RoundName,
			RoundOrder: s.RoundOrder,
			Status:     s.State,
			SessionID:  s.SessionID,
		}
		if s.Token != nil {
			exp := s.Token.ExpiresAt
			item.Token = s.Token.Value
			item.TokenExpiresAt = &exp
		}
		if s.Attendance != nil {
			a := toAttendanceResp(*s.Attendance)
			item.Attendance = &a
		}
		items = append(items, item)
	}
	return items
}

// MyRounds resolves every visible round of a job for the caller.
func (h *StudentHandler) MyRounds(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	jobID, ok := uintParam(c, "jobId")
	if !ok {
		return
	}

	statuses, err := h.Engine.GetMyRoundStatuses(c.Request.Context(), jobID, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{
		"job_id": jobID,
		"rounds": toStatusList(statuses),
	})
}

// MyRoundsStream pushes the same payload as MyRounds over a websocket, once
// on connect and then every RefreshInterval, so the QR code never goes stale.
func (h *StudentHandler) MyRoundsStream(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	jobID, ok := uintParam(c, "jobId")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	// fail before the upgrade so the client gets a normal error response
	statuses, err := h.Engine.GetMyRoundStatuses(ctx, jobID, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	// drain client frames; a read error means the peer went away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.RefreshInterval)
	defer ticker.Stop()

	for {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(gin.H{"job_id": jobID, "rounds": toStatusList(statuses)}); err != nil {
			log.Printf("websocket write to user %d: %v", user.ID, err)
			return
		}

		select {
		case <-closed:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		statuses, err = h.Engine.GetMyRoundStatuses(ctx, jobID, user.ID)
		if err != nil {
			log.Printf("refresh statuses for user %d: %v", user.ID, err)
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "refresh failed"),
				time.Now().Add(wsWriteTimeout))
			return
		}
	}
}

// IssueToken mints a fresh scan token for one round.
func (h *StudentHandler) IssueToken(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	roundID, ok := uintParam(c, "roundId")
	if !ok {
		return
	}

	tok, err := h.Engine.IssueToken(c.Request.Context(), user.ID, roundID)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.Response{
		"token":      tok.Value,
		"round_id":   tok.RoundID,
		"session_id": tok.SessionID,
		"expires_at": tok.ExpiresAt,
	})
}
