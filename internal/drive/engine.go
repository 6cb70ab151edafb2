package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/YuktaYBhat/Placement-cell-sub000/internal/models"

	"gorm.io/gorm"
)

// Applicants answers whether a student applied to a job. Applications are
// owned by another part of the portal.
type Applicants interface {
	IsApplicant(ctx context.Context, jobID, userID uint) (bool, error)
}

// DBApplicants reads the applications table.
type DBApplicants struct {
	DB *gorm.DB
}

func (a DBApplicants) IsApplicant(ctx context.Context, jobID, userID uint) (bool, error) {
	var count int64
	err := a.DB.WithContext(ctx).Model(&models.Application{}).
		Where("job_id = ? AND user_id = ?", jobID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("query application: %w", err)
	}
	return count > 0, nil
}

type Options struct {
	TokenTTL   time.Duration
	Now        func() time.Time
	Logger     *slog.Logger
	Applicants Applicants
}

// Engine runs the round registry, the session lifecycle, token issuance and
// the attendance ledger for every job. It is safe for concurrent use.
type Engine struct {
	db         *gorm.DB
	tokens     *TokenStore
	locks      *jobLocks
	now        func() time.Time
	log        *slog.Logger
	applicants Applicants
}

func NewEngine(db *gorm.DB, opts Options) *Engine {
	e := &Engine{
		db:         db,
		tokens:     NewTokenStore(opts.TokenTTL),
		locks:      newJobLocks(),
		now:        opts.Now,
		log:        opts.Logger,
		applicants: opts.Applicants,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.log == nil {
		e.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if e.applicants == nil {
		e.applicants = DBApplicants{DB: db}
	}
	return e
}

// Tokens exposes the token store, mainly for the background sweeper.
func (e *Engine) Tokens() *TokenStore {
	return e.tokens
}

// jobLocks serialises writers per job. Polls share the read side so they
// never observe a half-applied session close.
type jobLocks struct {
	mu    sync.Mutex
	byJob map[uint]*sync.RWMutex
}

func newJobLocks() *jobLocks {
	return &jobLocks{byJob: make(map[uint]*sync.RWMutex)}
}

func (l *jobLocks) get(jobID uint) *sync.RWMutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.byJob[jobID]
	if !ok {
		m = &sync.RWMutex{}
		l.byJob[jobID] = m
	}
	return m
}

func (l *jobLocks) lock(jobID uint) func() {
	m := l.get(jobID)
	m.Lock()
	return m.Unlock
}

func (l *jobLocks) rlock(jobID uint) func() {
	m := l.get(jobID)
	m.RLock()
	return m.RUnlock
}

func (e *Engine) loadJob(ctx context.Context, jobID uint) (models.Job, error) {
	var job models.Job
	if err := e.db.WithContext(ctx).First(&job, jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return job, fmt.Errorf("job %d: %w", jobID, ErrNotFound)
		}
		return job, fmt.Errorf("query job: %w", err)
	}
	return job, nil
}

func loadRound(tx *gorm.DB, roundID uint) (models.Round, error) {
	var r models.Round
	if err := tx.First(&r, roundID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return r, fmt.Errorf("round %d: %w", roundID, ErrNotFound)
		}
		return r, fmt.Errorf("query round: %w", err)
	}
	return r, nil
}

func loadSession(tx *gorm.DB, sessionID uint) (models.RoundSession, error) {
	var s models.RoundSession
	if err := tx.First(&s, sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s, fmt.Errorf("session %d: %w", sessionID, ErrNotFound)
		}
		return s, fmt.Errorf("query session: %w", err)
	}
	return s, nil
}

// latestSession returns the current session of a round, ok is false when the
// round never had one.
func latestSession(tx *gorm.DB, roundID uint) (models.RoundSession, bool, error) {
	var s models.RoundSession
	err := tx.Where("round_id = ?", roundID).Order("id DESC").Limit(1).Find(&s).Error
	if err != nil {
		return s, false, fmt.Errorf("query latest session: %w", err)
	}
	return s, s.ID != 0, nil
}

// latestSessions returns the latest session of every round of a job.
func latestSessions(tx *gorm.DB, jobID uint) (map[uint]models.RoundSession, error) {
	var sessions []models.RoundSession
	err := tx.Where("id IN (?)",
		tx.Model(&models.RoundSession{}).Select("MAX(id)").Where("job_id = ?", jobID).Group("round_id"),
	).Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	out := make(map[uint]models.RoundSession, len(sessions))
	for _, s := range sessions {
		out[s.RoundID] = s
	}
	return out, nil
}

// snapshot loads the job's rounds, sessions and the student's attendance
// through tx. The applicant flag is looked up by the caller before any
// transaction starts, so a transaction never waits on a second pooled
// connection.
func snapshot(tx *gorm.DB, jobID, userID uint, applicant bool) (Snapshot, error) {
	snap := Snapshot{
		Attendance: make(map[uint]models.RoundAttendance),
		Applicant:  applicant,
	}

	if err := tx.Where("job_id = ?", jobID).Find(&snap.Rounds).Error; err != nil {
		return snap, fmt.Errorf("query rounds: %w", err)
	}

	sessions, err := latestSessions(tx, jobID)
	if err != nil {
		return snap, err
	}
	snap.Sessions = sessions

	var rows []models.RoundAttendance
	if err := tx.Where("job_id = ? AND user_id = ?", jobID, userID).Find(&rows).Error; err != nil {
		return snap, fmt.Errorf("query attendance: %w", err)
	}
	for _, a := range rows {
		snap.Attendance[a.RoundID] = a
	}
	return snap, nil
}

// GetMyRoundStatuses resolves every visible round of a job for one student
// and mints a fresh scan token for each round that resolves ACTIVE.
func (e *Engine) GetMyRoundStatuses(ctx context.Context, jobID, userID uint) ([]RoundStatus, error) {
	if _, err := e.loadJob(ctx, jobID); err != nil {
		return nil, err
	}

	unlock := e.locks.rlock(jobID)
	defer unlock()

	applicant, err := e.applicants.IsApplicant(ctx, jobID, userID)
	if err != nil {
		return nil, err
	}
	snap, err := snapshot(e.db.WithContext(ctx), jobID, userID, applicant)
	if err != nil {
		return nil, err
	}

	statuses := Resolve(snap)
	now := e.now()
	for i := range statuses {
		if statuses[i].State != StateActive {
			continue
		}
		tok, err := e.tokens.Issue(ScanToken{
			UserID:    userID,
			JobID:     jobID,
			RoundID:   statuses[i].RoundID,
			SessionID: statuses[i].SessionID,
		}, now)
		if err != nil {
			return nil, fmt.Errorf("issue token: %w", err)
		}
		statuses[i].Token = &tok
	}
	return statuses, nil
}

// isRejection reports whether err is a business rule rejection as opposed
// to an infrastructure failure.
func isRejection(err error) bool {
	for _, target := range []error{
		ErrNotFound, ErrValidation, ErrConflict, ErrInvalidState, ErrNotActive,
		ErrTokenExpired, ErrTokenConsumed, ErrTokenNotFound,
		ErrDuplicateAttendance, ErrNotEligible,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
