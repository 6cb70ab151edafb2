package drive

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/YuktaYBhat/Placement-cell-sub000/internal/config"
	"github.com/YuktaYBhat/Placement-cell-sub000/internal/database"
	"github.com/YuktaYBhat/Placement-cell-sub000/internal/models"

	"gorm.io/gorm"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	db    *gorm.DB
	eng   *Engine
	clock *fakeClock
	job   models.Job
}

const testTTL = 60 * time.Second

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.Init(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "drive.db")})
	if err != nil {
		t.Fatalf("init database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	job := models.Job{Title: "Graduate Engineer Trainee", Company: "Acme Systems"}
	if err := db.Create(&job).Error; err != nil {
		t.Fatalf("create job: %v", err)
	}

	clock := newFakeClock()
	return &fixture{
		t:     t,
		ctx:   context.Background(),
		db:    db,
		clock: clock,
		job:   job,
		eng: NewEngine(db, Options{
			TokenTTL: testTTL,
			Now:      clock.Now,
		}),
	}
}

// apply registers students as applicants of the fixture job.
func (f *fixture) apply(userIDs ...uint) {
	f.t.Helper()
	for _, id := range userIDs {
		if err := f.db.Create(&models.Application{JobID: f.job.ID, UserID: id}).Error; err != nil {
			f.t.Fatalf("create application: %v", err)
		}
	}
}

func (f *fixture) round(name string) models.Round {
	f.t.Helper()
	r, err := f.eng.CreateRound(f.ctx, f.job.ID, name, 0)
	if err != nil {
		f.t.Fatalf("CreateRound(%q) error = %v", name, err)
	}
	return r
}

func (f *fixture) start(roundID uint) models.RoundSession {
	f.t.Helper()
	s, err := f.eng.StartSession(f.ctx, roundID)
	if err != nil {
		f.t.Fatalf("StartSession(%d) error = %v", roundID, err)
	}
	return s
}

func (f *fixture) statuses(userID uint) []RoundStatus {
	f.t.Helper()
	st, err := f.eng.GetMyRoundStatuses(f.ctx, f.job.ID, userID)
	if err != nil {
		f.t.Fatalf("GetMyRoundStatuses() error = %v", err)
	}
	return st
}

func (f *fixture) stateOf(userID, roundID uint) RoundStatus {
	f.t.Helper()
	st, ok := find(f.statuses(userID), roundID)
	if !ok {
		f.t.Fatalf("round %d not visible", roundID)
	}
	return st
}

// attend issues and redeems a token for the student on the round.
func (f *fixture) attend(userID, roundID uint) Redemption {
	f.t.Helper()
	tok, err := f.eng.IssueToken(f.ctx, userID, roundID)
	if err != nil {
		f.t.Fatalf("IssueToken(%d, %d) error = %v", userID, roundID, err)
	}
	red, err := f.eng.RedeemToken(f.ctx, tok.Value)
	if err != nil {
		f.t.Fatalf("RedeemToken() error = %v", err)
	}
	return red
}

func (f *fixture) orders() map[string]int {
	f.t.Helper()
	var rounds []models.Round
	if err := f.db.Where("job_id = ?", f.job.ID).Find(&rounds).Error; err != nil {
		f.t.Fatalf("list rounds: %v", err)
	}
	out := make(map[string]int, len(rounds))
	for _, r := range rounds {
		out[r.Name] = r.Order
	}
	return out
}
