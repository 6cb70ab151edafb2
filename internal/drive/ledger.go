package drive

import (
	"context"
	"errors"
	"fmt"

	"github.com/YuktaYBhat/Placement-cell-sub000/internal/models"

	"gorm.io/gorm"
)

// AttendanceFilter narrows ListAttendance. Zero values mean no filter.
type AttendanceFilter struct {
	RoundID uint
	Status  models.AttendanceStatus
}

// AttendancePage is one page of ledger rows.
type AttendancePage struct {
	Items []models.RoundAttendance
	Total int64
	Page  int
	Limit int
}

const maxPageLimit = 100

// insertAttendance relies on the (user_id, round_id) unique index rather than
// a read-then-write check.
func (e *Engine) insertAttendance(tx *gorm.DB, userID, jobID, roundID, sessionID uint) (models.RoundAttendance, error) {
	att := models.RoundAttendance{
		UserID:    userID,
		JobID:     jobID,
		RoundID:   roundID,
		SessionID: sessionID,
		Status:    models.AttendanceAttended,
		MarkedAt:  e.now(),
	}
	if err := tx.Create(&att).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return att, fmt.Errorf("%w: user %d in round %d", ErrDuplicateAttendance, userID, roundID)
		}
		return att, fmt.Errorf("insert attendance: %w", err)
	}
	return att, nil
}

// RecordAttendance writes an ATTENDED row for (user, round). At most one row
// per pair ever exists; later calls fail with ErrDuplicateAttendance.
func (e *Engine) RecordAttendance(ctx context.Context, userID, roundID, sessionID uint) (models.RoundAttendance, error) {
	db := e.db.WithContext(ctx)
	r, err := loadRound(db, roundID)
	if err != nil {
		return models.RoundAttendance{}, err
	}
	sess, err := loadSession(db, sessionID)
	if err != nil {
		return models.RoundAttendance{}, err
	}
	if sess.RoundID != roundID {
		return models.RoundAttendance{}, fmt.Errorf("%w: session %d does not belong to round %d", ErrValidation, sessionID, roundID)
	}

	unlock := e.locks.lock(r.JobID)
	defer unlock()
	return e.insertAttendance(db, userID, r.JobID, roundID, sessionID)
}

// SetAttendanceOutcome records the admin's pass/fail decision. The decision
// can be flipped any number of times, whatever the session state.
func (e *Engine) SetAttendanceOutcome(ctx context.Context, attendanceID uint, status models.AttendanceStatus) (models.RoundAttendance, error) {
	if !status.IsDecision() {
		return models.RoundAttendance{}, fmt.Errorf("%w: outcome must be PASSED or FAILED", ErrValidation)
	}

	db := e.db.WithContext(ctx)
	var att models.RoundAttendance
	if err := db.First(&att, attendanceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return att, fmt.Errorf("attendance %d: %w", attendanceID, ErrNotFound)
		}
		return att, fmt.Errorf("query attendance: %w", err)
	}

	unlock := e.locks.lock(att.JobID)
	defer unlock()

	if err := db.Model(&att).Update("status", status).Error; err != nil {
		return att, fmt.Errorf("update attendance: %w", err)
	}
	att.Status = status

	e.log.Info("attendance outcome set", "attendance_id", att.ID, "user_id", att.UserID, "round_id", att.RoundID, "status", string(status))
	return att, nil
}

// ListAttendance pages through a job's ledger, newest first.
func (e *Engine) ListAttendance(ctx context.Context, jobID uint, f AttendanceFilter, page, limit int) (AttendancePage, error) {
	if f.Status != "" && !f.Status.Valid() {
		return AttendancePage{}, fmt.Errorf("%w: unknown attendance status %q", ErrValidation, f.Status)
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > maxPageLimit {
		limit = 20
	}

	base := e.db.WithContext(ctx).Model(&models.RoundAttendance{}).Where("job_id = ?", jobID)
	if f.RoundID != 0 {
		base = base.Where("round_id = ?", f.RoundID)
	}
	if f.Status != "" {
		base = base.Where("status = ?", f.Status)
	}

	out := AttendancePage{Page: page, Limit: limit}
	if err := base.Session(&gorm.Session{}).Count(&out.Total).Error; err != nil {
		return out, fmt.Errorf("count attendance: %w", err)
	}
	if err := base.
		Order("marked_at DESC, id DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&out.Items).Error; err != nil {
		return out, fmt.Errorf("list attendance: %w", err)
	}
	return out, nil
}
