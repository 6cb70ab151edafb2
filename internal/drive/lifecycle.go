package drive

import (
	"context"
	"fmt"

	"github.com/YuktaYBhat/Placement-cell-sub000/internal/models"

	"gorm.io/gorm"
)

// SessionAction is an admin request against a running session.
type SessionAction string

const (
	ActionTempClose SessionAction = "TEMP_CLOSE"
	ActionPermClose SessionAction = "PERM_CLOSE"
	ActionReopen    SessionAction = "REOPEN"
)

func (a SessionAction) Valid() bool {
	switch a {
	case ActionTempClose, ActionPermClose, ActionReopen:
		return true
	}
	return false
}

// transitions lists every legal (from, action) pair and its target state.
// PERM_CLOSED has no outgoing edge.
var transitions = map[models.SessionStatus]map[SessionAction]models.SessionStatus{
	models.SessionActive: {
		ActionTempClose: models.SessionTempClosed,
		ActionPermClose: models.SessionPermClosed,
	},
	models.SessionTempClosed: {
		ActionReopen:    models.SessionActive,
		ActionPermClose: models.SessionPermClosed,
	},
}

// nextStatus returns the state reached by applying action to from.
func nextStatus(from models.SessionStatus, action SessionAction) (models.SessionStatus, bool) {
	to, ok := transitions[from][action]
	return to, ok
}

// StartSession opens a new attendance window on a round. Legal only when the
// round never had a session or its latest one is PERM_CLOSED.
func (e *Engine) StartSession(ctx context.Context, roundID uint) (models.RoundSession, error) {
	unlock, err := e.lockRoundJob(ctx, roundID)
	if err != nil {
		return models.RoundSession{}, err
	}
	defer unlock()

	var sess models.RoundSession
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := loadRound(tx, roundID)
		if err != nil {
			return err
		}
		if r.IsRemoved {
			return stateErr(fmt.Sprintf("round %q", r.Name), "removed", "start a session")
		}
		latest, ok, err := latestSession(tx, roundID)
		if err != nil {
			return err
		}
		if ok && latest.Status.Live() {
			return stateErr(fmt.Sprintf("session %d", latest.ID), string(latest.Status), "start a new session")
		}

		sess = models.RoundSession{
			RoundID:   r.ID,
			JobID:     r.JobID,
			Status:    models.SessionActive,
			StartTime: e.now(),
		}
		if err := tx.Create(&sess).Error; err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.RoundSession{}, err
	}

	e.log.Info("session started", "round_id", roundID, "session_id", sess.ID)
	return sess, nil
}

// UpdateSession applies an admin action. Closing a session revokes its
// outstanding scan tokens before the job lock is released, so no scan can
// land on a paused or finished session.
func (e *Engine) UpdateSession(ctx context.Context, sessionID uint, action SessionAction) (models.RoundSession, error) {
	if !action.Valid() {
		return models.RoundSession{}, fmt.Errorf("%w: unknown session action %q", ErrValidation, action)
	}

	s, err := loadSession(e.db.WithContext(ctx), sessionID)
	if err != nil {
		return models.RoundSession{}, err
	}
	unlock := e.locks.lock(s.JobID)
	defer unlock()

	var sess models.RoundSession
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := loadSession(tx, sessionID)
		if err != nil {
			return err
		}
		to, ok := nextStatus(cur.Status, action)
		if !ok {
			return stateErr(fmt.Sprintf("session %d", cur.ID), string(cur.Status), string(action))
		}

		updates := map[string]any{"status": to}
		if to == models.SessionPermClosed {
			end := e.now()
			cur.EndTime = &end
			updates["end_time"] = end
		}
		if err := tx.Model(&cur).Updates(updates).Error; err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		cur.Status = to
		sess = cur
		return nil
	})
	if err != nil {
		return models.RoundSession{}, err
	}

	revoked := 0
	if sess.Status != models.SessionActive {
		revoked = e.tokens.RevokeSession(sess.ID)
	}
	e.log.Info("session updated",
		"session_id", sess.ID, "action", string(action), "status", string(sess.Status), "revoked_tokens", revoked)
	return sess, nil
}

// TempClose pauses a session.
func (e *Engine) TempClose(ctx context.Context, sessionID uint) (models.RoundSession, error) {
	return e.UpdateSession(ctx, sessionID, ActionTempClose)
}

// Reopen resumes a paused session.
func (e *Engine) Reopen(ctx context.Context, sessionID uint) (models.RoundSession, error) {
	return e.UpdateSession(ctx, sessionID, ActionReopen)
}

// PermClose ends a session for good.
func (e *Engine) PermClose(ctx context.Context, sessionID uint) (models.RoundSession, error) {
	return e.UpdateSession(ctx, sessionID, ActionPermClose)
}
