package drive

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/YuktaYBhat/Placement-cell-sub000/internal/models"
	"github.com/YuktaYBhat/Placement-cell-sub000/internal/util"

	"gorm.io/gorm"
)

// Direction moves a round one slot in the drive order.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

func (d Direction) Valid() bool {
	return d == DirectionUp || d == DirectionDown
}

// AttendanceCounts aggregates attendance rows of one round.
type AttendanceCounts struct {
	Total    int64
	Attended int64
	Passed   int64
	Failed   int64
}

// RoundSummary is a row of the admin drive-management screen.
type RoundSummary struct {
	Round         models.Round
	LatestSession *models.RoundSession
	Counts        AttendanceCounts
}

// ListRounds returns every round of a job, removed ones included, sorted by
// removal flag and order, with the latest session and attendance counts.
func (e *Engine) ListRounds(ctx context.Context, jobID uint) ([]RoundSummary, error) {
	if _, err := e.loadJob(ctx, jobID); err != nil {
		return nil, err
	}
	db := e.db.WithContext(ctx)

	var rounds []models.Round
	if err := db.Where("job_id = ?", jobID).
		Order("is_removed ASC, round_order ASC, id ASC").
		Find(&rounds).Error; err != nil {
		return nil, fmt.Errorf("query rounds: %w", err)
	}

	sessions, err := latestSessions(db, jobID)
	if err != nil {
		return nil, err
	}

	var counts []struct {
		RoundID uint
		Status  models.AttendanceStatus
		N       int64
	}
	if err := db.Model(&models.RoundAttendance{}).
		Select("round_id, status, COUNT(*) AS n").
		Where("job_id = ?", jobID).
		Group("round_id, status").
		Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("count attendance: %w", err)
	}
	byRound := make(map[uint]*AttendanceCounts)
	for _, c := range counts {
		ac, ok := byRound[c.RoundID]
		if !ok {
			ac = &AttendanceCounts{}
			byRound[c.RoundID] = ac
		}
		ac.Total += c.N
		switch c.Status {
		case models.AttendanceAttended:
			ac.Attended += c.N
		case models.AttendancePassed:
			ac.Passed += c.N
		case models.AttendanceFailed:
			ac.Failed += c.N
		}
	}

	out := make([]RoundSummary, 0, len(rounds))
	for _, r := range rounds {
		s := RoundSummary{Round: r}
		if sess, ok := sessions[r.ID]; ok {
			sess := sess
			s.LatestSession = &sess
		}
		if ac, ok := byRound[r.ID]; ok {
			s.Counts = *ac
		}
		out = append(out, s)
	}
	return out, nil
}

// CreateRound appends a round to a job. An order of 0 places the round after
// the last non-removed round.
func (e *Engine) CreateRound(ctx context.Context, jobID uint, name string, order int) (models.Round, error) {
	name = strings.TrimSpace(name)
	if err := util.ValidateRoundName(name); err != nil {
		return models.Round{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if order != 0 {
		if err := util.ValidateRoundOrder(order); err != nil {
			return models.Round{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	if _, err := e.loadJob(ctx, jobID); err != nil {
		return models.Round{}, err
	}

	unlock := e.locks.lock(jobID)
	defer unlock()

	round := models.Round{JobID: jobID, Name: name, Order: order}
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if round.Order == 0 {
			var max int
			if err := tx.Model(&models.Round{}).
				Where("job_id = ? AND is_removed = ?", jobID, false).
				Select("COALESCE(MAX(round_order), 0)").
				Scan(&max).Error; err != nil {
				return fmt.Errorf("query max order: %w", err)
			}
			round.Order = max + 1
		}
		if err := tx.Create(&round).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: order %d is already used in job %d", ErrConflict, round.Order, jobID)
			}
			return fmt.Errorf("create round: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Round{}, err
	}

	e.log.Info("round created", "job_id", jobID, "round_id", round.ID, "order", round.Order)
	return round, nil
}

// lockRoundJob loads a round only to learn its job, then takes the job's
// write lock. Callers must re-read the round under the lock.
func (e *Engine) lockRoundJob(ctx context.Context, roundID uint) (func(), error) {
	r, err := loadRound(e.db.WithContext(ctx), roundID)
	if err != nil {
		return nil, err
	}
	return e.locks.lock(r.JobID), nil
}

func ensureNotLive(tx *gorm.DB, r models.Round, requested string) error {
	sess, ok, err := latestSession(tx, r.ID)
	if err != nil {
		return err
	}
	if ok && sess.Status.Live() {
		return stateErr(fmt.Sprintf("round %q session", r.Name), string(sess.Status), requested)
	}
	return nil
}

// RenameRound changes a round's name. Blocked while the round has a live
// session so students mid-drive do not see it change.
func (e *Engine) RenameRound(ctx context.Context, roundID uint, name string) (models.Round, error) {
	name = strings.TrimSpace(name)
	if err := util.ValidateRoundName(name); err != nil {
		return models.Round{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	unlock, err := e.lockRoundJob(ctx, roundID)
	if err != nil {
		return models.Round{}, err
	}
	defer unlock()

	var round models.Round
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := loadRound(tx, roundID)
		if err != nil {
			return err
		}
		if err := ensureNotLive(tx, r, "rename"); err != nil {
			return err
		}
		if err := tx.Model(&r).Update("name", name).Error; err != nil {
			return fmt.Errorf("rename round: %w", err)
		}
		r.Name = name
		round = r
		return nil
	})
	return round, err
}

// ReorderRound swaps the order of a round with its adjacent non-removed
// neighbour. Both writes happen in one transaction.
func (e *Engine) ReorderRound(ctx context.Context, roundID uint, dir Direction) ([]models.Round, error) {
	if !dir.Valid() {
		return nil, fmt.Errorf("%w: direction must be up or down", ErrValidation)
	}

	unlock, err := e.lockRoundJob(ctx, roundID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var swapped []models.Round
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := loadRound(tx, roundID)
		if err != nil {
			return err
		}
		if r.IsRemoved {
			return stateErr(fmt.Sprintf("round %q", r.Name), "removed", "reorder")
		}
		if err := ensureNotLive(tx, r, "reorder"); err != nil {
			return err
		}

		q := tx.Where("job_id = ? AND is_removed = ?", r.JobID, false)
		if dir == DirectionUp {
			q = q.Where("round_order < ?", r.Order).Order("round_order DESC")
		} else {
			q = q.Where("round_order > ?", r.Order).Order("round_order ASC")
		}
		var nb models.Round
		if err := q.Limit(1).Find(&nb).Error; err != nil {
			return fmt.Errorf("query neighbour: %w", err)
		}
		if nb.ID == 0 {
			edge := "first"
			if dir == DirectionDown {
				edge = "last"
			}
			return stateErr(fmt.Sprintf("round %q", r.Name), "already "+edge, "move "+string(dir))
		}
		if err := ensureNotLive(tx, nb, "reorder"); err != nil {
			return err
		}

		// park r on a negative order so the live-order index never sees two
		// rounds on the same slot
		steps := []struct {
			id    uint
			order int
		}{
			{r.ID, -r.Order},
			{nb.ID, r.Order},
			{r.ID, nb.Order},
		}
		for _, s := range steps {
			if err := tx.Model(&models.Round{}).Where("id = ?", s.id).Update("round_order", s.order).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return fmt.Errorf("%w: concurrent reorder in job %d", ErrConflict, r.JobID)
				}
				return fmt.Errorf("swap order: %w", err)
			}
		}
		r.Order, nb.Order = nb.Order, r.Order
		swapped = []models.Round{r, nb}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("round reordered", "round_id", roundID, "direction", string(dir), "order", swapped[0].Order)
	return swapped, nil
}

// RemoveRound hides a round from the drive. Its attendance stays queryable.
func (e *Engine) RemoveRound(ctx context.Context, roundID uint) (models.Round, error) {
	return e.setRemoved(ctx, roundID, true)
}

// RestoreRound brings a removed round back at its previous order.
func (e *Engine) RestoreRound(ctx context.Context, roundID uint) (models.Round, error) {
	return e.setRemoved(ctx, roundID, false)
}

func (e *Engine) setRemoved(ctx context.Context, roundID uint, removed bool) (models.Round, error) {
	unlock, err := e.lockRoundJob(ctx, roundID)
	if err != nil {
		return models.Round{}, err
	}
	defer unlock()

	var round models.Round
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := loadRound(tx, roundID)
		if err != nil {
			return err
		}
		if r.IsRemoved == removed {
			current, requested := "active", "restore"
			if removed {
				current, requested = "removed", "remove"
			}
			return stateErr(fmt.Sprintf("round %q", r.Name), "already "+current, requested)
		}
		if err := tx.Model(&r).Update("is_removed", removed).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: order %d is taken by another round", ErrConflict, r.Order)
			}
			return fmt.Errorf("update round: %w", err)
		}
		r.IsRemoved = removed
		round = r
		return nil
	})
	if err != nil {
		return models.Round{}, err
	}

	e.log.Info("round visibility changed", "round_id", roundID, "removed", removed)
	return round, nil
}
