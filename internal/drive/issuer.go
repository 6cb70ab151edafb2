package drive

import (
	"context"
	"fmt"

	"github.com/YuktaYBhat/Placement-cell-sub000/internal/models"

	"gorm.io/gorm"
)

// Redemption is what the admin scanner gets back after a successful scan.
type Redemption struct {
	UserID       uint
	RoundID      uint
	SessionID    uint
	AttendanceID uint
	Outcome      models.AttendanceStatus
}

// IssueToken mints a scan token for a student on a round. The round's current
// session must be ACTIVE and the student must have unlocked the round.
func (e *Engine) IssueToken(ctx context.Context, userID, roundID uint) (ScanToken, error) {
	r, err := loadRound(e.db.WithContext(ctx), roundID)
	if err != nil {
		return ScanToken{}, err
	}

	unlock := e.locks.rlock(r.JobID)
	defer unlock()

	applicant, err := e.applicants.IsApplicant(ctx, r.JobID, userID)
	if err != nil {
		return ScanToken{}, err
	}
	snap, err := snapshot(e.db.WithContext(ctx), r.JobID, userID, applicant)
	if err != nil {
		return ScanToken{}, err
	}
	st, ok := find(Resolve(snap), roundID)
	if !ok {
		return ScanToken{}, fmt.Errorf("%w: round %d is removed", ErrNotActive, roundID)
	}
	if st.State != StateActive {
		return ScanToken{}, fmt.Errorf("%w: round %d is %s", ErrNotActive, roundID, st.State)
	}

	return e.tokens.Issue(ScanToken{
		UserID:    userID,
		JobID:     r.JobID,
		RoundID:   roundID,
		SessionID: st.SessionID,
	}, e.now())
}

// RedeemToken consumes a scan token and records attendance. The token claim
// and the ledger write happen under the job's write lock, so two scans of one
// token, or a scan racing a session close, resolve to exactly one outcome.
func (e *Engine) RedeemToken(ctx context.Context, value string) (Redemption, error) {
	bound, ok := e.tokens.Lookup(value)
	if !ok {
		e.log.Warn("scan rejected", "reason", ErrTokenNotFound.Error())
		return Redemption{}, ErrTokenNotFound
	}

	unlock := e.locks.lock(bound.JobID)
	defer unlock()

	tok, err := e.tokens.Claim(value, e.now())
	if err != nil {
		e.log.Warn("scan rejected", "user_id", bound.UserID, "round_id", bound.RoundID, "reason", err.Error())
		return Redemption{}, err
	}

	att, err := e.admit(ctx, tok)
	if err != nil {
		if !isRejection(err) {
			e.tokens.Release(value)
		}
		e.log.Warn("scan rejected", "user_id", tok.UserID, "round_id", tok.RoundID, "reason", err.Error())
		return Redemption{}, err
	}

	e.log.Info("attendance recorded",
		"user_id", att.UserID, "round_id", att.RoundID, "session_id", att.SessionID, "attendance_id", att.ID)
	return Redemption{
		UserID:       att.UserID,
		RoundID:      att.RoundID,
		SessionID:    att.SessionID,
		AttendanceID: att.ID,
		Outcome:      att.Status,
	}, nil
}

// admit re-checks the claimed token against current state and writes the
// ledger row. Called with the job's write lock held.
func (e *Engine) admit(ctx context.Context, tok ScanToken) (models.RoundAttendance, error) {
	applicant, err := e.applicants.IsApplicant(ctx, tok.JobID, tok.UserID)
	if err != nil {
		return models.RoundAttendance{}, err
	}

	var att models.RoundAttendance
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sess, ok, err := latestSession(tx, tok.RoundID)
		if err != nil {
			return err
		}
		if !ok || sess.ID != tok.SessionID || sess.Status != models.SessionActive {
			return fmt.Errorf("%w: session %d is no longer active", ErrNotActive, tok.SessionID)
		}

		snap, err := snapshot(tx, tok.JobID, tok.UserID, applicant)
		if err != nil {
			return err
		}
		st, ok := find(Resolve(snap), tok.RoundID)
		switch {
		case !ok:
			return fmt.Errorf("%w: round %d is removed", ErrNotEligible, tok.RoundID)
		case st.State.Attended():
			return fmt.Errorf("%w: user %d in round %d", ErrDuplicateAttendance, tok.UserID, tok.RoundID)
		case st.State == StateNotEligible:
			return fmt.Errorf("%w: user %d, round %d", ErrNotEligible, tok.UserID, tok.RoundID)
		case st.State != StateActive:
			return fmt.Errorf("%w: round %d is %s", ErrNotActive, tok.RoundID, st.State)
		}

		att, err = e.insertAttendance(tx, tok.UserID, tok.JobID, tok.RoundID, tok.SessionID)
		return err
	})
	return att, err
}
