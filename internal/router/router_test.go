package router

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/YuktaYBhat/Placement-cell-sub000/internal/config"
	"github.com/YuktaYBhat/Placement-cell-sub000/internal/database"
	"github.com/YuktaYBhat/Placement-cell-sub000/internal/drive"
	"github.com/YuktaYBhat/Placement-cell-sub000/internal/models"
	"github.com/YuktaYBhat/Placement-cell-sub000/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	adminUser = "cell_admin"
	adminPass = "AdminPass1"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	db     *gorm.DB
	engine *gin.Engine
	job    models.Job
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := database.Init(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "api.db")})
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
	if err := database.EnsureAdmin(db, adminUser, adminPass, bcrypt.MinCost); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}

	job := models.Job{Title: "Graduate Engineer", Company: "Acme"}
	if err := db.Create(&job).Error; err != nil {
		t.Fatalf("create job: %v", err)
	}

	cfg := &config.Config{
		Server:   config.ServerConfig{Mode: gin.TestMode},
		JWT:      config.JWTConfig{Secret: "test-secret", Issuer: "test", ExpireHours: 1},
		Security: config.SecurityConfig{BcryptCost: bcrypt.MinCost},
		Drive:    config.DriveConfig{TokenTTL: time.Minute, RefreshInterval: 50 * time.Millisecond},
		App:      config.AppSubConfig{PageSize: 20},
	}
	eng := drive.NewEngine(db, drive.Options{TokenTTL: cfg.Drive.TokenTTL})

	return &testServer{t: t, db: db, engine: SetupRouter(cfg, db, eng), job: job}
}

func (s *testServer) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		s.t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
	}
	return rec, env
}

// ok performs the request, requires a success envelope and decodes data into out.
func (s *testServer) ok(method, path, token string, body, out any) {
	s.t.Helper()
	rec, env := s.do(method, path, token, body)
	if rec.Code != http.StatusOK || env.Code != util.CodeOK {
		s.t.Fatalf("%s %s = %d %+v, want 200", method, path, rec.Code, env)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			s.t.Fatalf("%s %s: decode data: %v", method, path, err)
		}
	}
}

func (s *testServer) login(username, password string) string {
	s.t.Helper()
	var out struct {
		Token string `json:"token"`
	}
	s.ok(http.MethodPost, "/api/auth/login", "", gin.H{"username": username, "password": password}, &out)
	return out.Token
}

// student registers, applies to the job and logs in.
func (s *testServer) student(username string) (uint, string) {
	s.t.Helper()
	var reg struct {
		User struct {
			ID uint `json:"id"`
		} `json:"user"`
	}
	s.ok(http.MethodPost, "/api/auth/register", "", gin.H{
		"username":         username,
		"password":         "Student123",
		"confirm_password": "Student123",
	}, &reg)
	if err := s.db.Create(&models.Application{JobID: s.job.ID, UserID: reg.User.ID}).Error; err != nil {
		s.t.Fatalf("apply: %v", err)
	}
	return reg.User.ID, s.login(username, "Student123")
}

type roundView struct {
	RoundID    uint   `json:"round_id"`
	RoundName  string `json:"round_name"`
	Status     string `json:"status"`
	Token      string `json:"token"`
	Attendance *struct {
		ID     uint   `json:"id"`
		Status string `json:"status"`
	} `json:"attendance"`
}

func (s *testServer) myRounds(token string) []roundView {
	s.t.Helper()
	var out struct {
		Rounds []roundView `json:"rounds"`
	}
	s.ok(http.MethodGet, fmt.Sprintf("/api/jobs/%d/my-rounds", s.job.ID), token, nil, &out)
	return out.Rounds
}

func (s *testServer) createRound(admin, name string) uint {
	s.t.Helper()
	var out struct {
		Round struct {
			ID    uint `json:"id"`
			Order int  `json:"order"`
		} `json:"round"`
	}
	s.ok(http.MethodPost, fmt.Sprintf("/api/admin/jobs/%d/rounds", s.job.ID), admin, gin.H{"name": name}, &out)
	return out.Round.ID
}

func (s *testServer) startSession(admin string, roundID uint) uint {
	s.t.Helper()
	var out struct {
		Session struct {
			ID     uint   `json:"id"`
			Status string `json:"status"`
		} `json:"session"`
	}
	s.ok(http.MethodPost, fmt.Sprintf("/api/admin/rounds/%d/sessions", roundID), admin, nil, &out)
	if out.Session.Status != "ACTIVE" {
		s.t.Fatalf("new session status = %q", out.Session.Status)
	}
	return out.Session.ID
}

func TestDriveFlow(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(adminUser, adminPass)
	aliceID, alice := s.student("alice")

	apt := s.createRound(admin, "Aptitude")
	tech := s.createRound(admin, "Technical")

	rounds := s.myRounds(alice)
	if len(rounds) != 2 || rounds[0].Status != "NOT_STARTED" || rounds[1].Status != "NOT_ELIGIBLE" {
		t.Fatalf("before start = %+v", rounds)
	}
	if rounds[0].Token != "" {
		t.Errorf("token issued for a round that has not started")
	}

	s.startSession(admin, apt)
	rounds = s.myRounds(alice)
	if rounds[0].Status != "ACTIVE" || rounds[0].Token == "" {
		t.Fatalf("after start = %+v", rounds[0])
	}

	var scan struct {
		UserID       uint   `json:"user_id"`
		AttendanceID uint   `json:"attendance_id"`
		Outcome      string `json:"outcome"`
	}
	s.ok(http.MethodPost, "/api/admin/scan", admin, gin.H{"token": rounds[0].Token}, &scan)
	if scan.UserID != aliceID || scan.Outcome != "ATTENDED" {
		t.Errorf("scan = %+v", scan)
	}

	rec, env := s.do(http.MethodPost, "/api/admin/scan", admin, gin.H{"token": rounds[0].Token})
	if rec.Code != http.StatusConflict || env.Code != util.CodeTokenUsed {
		t.Errorf("second scan = %d %+v, want 409 token used", rec.Code, env)
	}

	s.ok(http.MethodPatch, fmt.Sprintf("/api/admin/attendance/%d", scan.AttendanceID), admin,
		gin.H{"status": "PASSED"}, nil)

	rounds = s.myRounds(alice)
	if rounds[0].Status != "ATTENDED_PASSED" || rounds[0].Attendance == nil {
		t.Errorf("aptitude after pass = %+v", rounds[0])
	}
	if rounds[1].RoundID != tech || rounds[1].Status != "NOT_STARTED" {
		t.Errorf("technical after pass = %+v", rounds[1])
	}

	var list struct {
		Items []struct {
			UserID uint   `json:"user_id"`
			Status string `json:"status"`
		} `json:"items"`
		Total int64 `json:"total"`
	}
	s.ok(http.MethodGet, fmt.Sprintf("/api/admin/jobs/%d/attendance?round_id=%d&status=passed", s.job.ID, apt), admin, nil, &list)
	if list.Total != 1 || list.Items[0].UserID != aliceID {
		t.Errorf("attendance list = %+v", list)
	}

	var summary struct {
		Items []struct {
			ID            uint `json:"id"`
			LatestSession *struct {
				Status string `json:"status"`
			} `json:"latest_session"`
			Attendance struct {
				Total  int64 `json:"total"`
				Passed int64 `json:"passed"`
			} `json:"attendance"`
		} `json:"items"`
	}
	s.ok(http.MethodGet, fmt.Sprintf("/api/admin/jobs/%d/rounds", s.job.ID), admin, nil, &summary)
	if len(summary.Items) != 2 || summary.Items[0].LatestSession == nil || summary.Items[0].Attendance.Passed != 1 {
		t.Errorf("round summary = %+v", summary)
	}
	if summary.Items[1].LatestSession != nil {
		t.Errorf("technical has a session: %+v", summary.Items[1].LatestSession)
	}
}

func TestSessionAndReorderErrors(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(adminUser, adminPass)
	_, alice := s.student("alice")

	apt := s.createRound(admin, "Aptitude")
	tech := s.createRound(admin, "Technical")
	sess := s.startSession(admin, apt)

	rec, env := s.do(http.MethodPost, fmt.Sprintf("/api/admin/rounds/%d/sessions", apt), admin, nil)
	if rec.Code != http.StatusConflict || env.Code != util.CodeInvalidState {
		t.Errorf("second start = %d %+v, want 409 invalid state", rec.Code, env)
	}
	if !strings.Contains(env.Message, "ACTIVE") {
		t.Errorf("admin message = %q, want the session state", env.Message)
	}

	rec, env = s.do(http.MethodPatch, fmt.Sprintf("/api/admin/sessions/%d", sess), admin, gin.H{"action": "PAUSE"})
	if rec.Code != http.StatusBadRequest || env.Code != util.CodeInvalidParam {
		t.Errorf("unknown action = %d %+v, want 400", rec.Code, env)
	}

	// a live session pins the order
	rec, env = s.do(http.MethodPost, fmt.Sprintf("/api/admin/rounds/%d/reorder", tech), admin, gin.H{"direction": "up"})
	if rec.Code != http.StatusConflict || env.Code != util.CodeInvalidState {
		t.Errorf("reorder with live session = %d %+v", rec.Code, env)
	}

	s.ok(http.MethodPatch, fmt.Sprintf("/api/admin/sessions/%d", sess), admin, gin.H{"action": "temp_close"}, nil)

	// students get the coarse label only
	rec, env = s.do(http.MethodPost, fmt.Sprintf("/api/rounds/%d/token", apt), alice, nil)
	if rec.Code != http.StatusConflict || env.Code != util.CodeNotActive || env.Message != "round not active" {
		t.Errorf("token on paused round = %d %+v", rec.Code, env)
	}

	s.ok(http.MethodPatch, fmt.Sprintf("/api/admin/sessions/%d", sess), admin, gin.H{"action": "PERM_CLOSE"}, nil)
	var reordered struct {
		Rounds []struct {
			ID    uint `json:"id"`
			Order int  `json:"order"`
		} `json:"rounds"`
	}
	s.ok(http.MethodPost, fmt.Sprintf("/api/admin/rounds/%d/reorder", tech), admin, gin.H{"direction": "up"}, &reordered)
	if len(reordered.Rounds) != 2 || reordered.Rounds[0].ID != tech || reordered.Rounds[0].Order != 1 {
		t.Errorf("reorder = %+v", reordered)
	}

	rec, env = s.do(http.MethodPost, "/api/admin/scan", admin, gin.H{"token": "not-a-token"})
	if rec.Code != http.StatusNotFound || env.Code != util.CodeTokenUnknown {
		t.Errorf("unknown token = %d %+v", rec.Code, env)
	}

	rec, env = s.do(http.MethodPost, "/api/admin/rounds/abc/remove", admin, nil)
	if rec.Code != http.StatusBadRequest || env.Code != util.CodeInvalidParam {
		t.Errorf("bad id = %d %+v", rec.Code, env)
	}
}

func TestAccessControl(t *testing.T) {
	s := newTestServer(t)
	_, alice := s.student("alice")

	rec, env := s.do(http.MethodGet, fmt.Sprintf("/api/jobs/%d/my-rounds", s.job.ID), "", nil)
	if rec.Code != http.StatusUnauthorized || env.Code != util.CodeAuth {
		t.Errorf("anonymous = %d %+v", rec.Code, env)
	}

	rec, env = s.do(http.MethodPost, fmt.Sprintf("/api/admin/jobs/%d/rounds", s.job.ID), alice, gin.H{"name": "Sneaky"})
	if rec.Code != http.StatusForbidden || env.Code != util.CodeForbidden {
		t.Errorf("student on admin route = %d %+v", rec.Code, env)
	}

	rec, env = s.do(http.MethodGet, "/api/me", "garbage", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad jwt = %d %+v", rec.Code, env)
	}

	var me struct {
		User struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"user"`
	}
	s.ok(http.MethodGet, "/api/me", alice, nil, &me)
	if me.User.Username != "alice" || me.User.Role != models.RoleStudent {
		t.Errorf("me = %+v", me)
	}
}

func TestLoginLockout(t *testing.T) {
	s := newTestServer(t)
	s.student("bob")

	for i := 0; i < 5; i++ {
		rec, _ := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "bob", "password": "Wrong1234"})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d = %d, want 401", i, rec.Code)
		}
	}
	rec, env := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "BOB", "password": "Student123"})
	if rec.Code != http.StatusUnauthorized || !strings.Contains(env.Message, "locked") {
		t.Errorf("login while locked = %d %+v", rec.Code, env)
	}
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)
	s.student("carol")

	tests := []struct {
		name string
		body gin.H
		want int
	}{
		{"short username", gin.H{"username": "ab", "password": "Student123", "confirm_password": "Student123"}, http.StatusBadRequest},
		{"weak password", gin.H{"username": "dave", "password": "password", "confirm_password": "password"}, http.StatusBadRequest},
		{"mismatch", gin.H{"username": "dave", "password": "Student123", "confirm_password": "Student124"}, http.StatusBadRequest},
		{"taken any case", gin.H{"username": "CAROL", "password": "Student123", "confirm_password": "Student123"}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := s.do(http.MethodPost, "/api/auth/register", "", tt.body)
			if rec.Code != tt.want {
				t.Errorf("register = %d %+v, want %d", rec.Code, env, tt.want)
			}
		})
	}
}

func TestAuditTrail(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(adminUser, adminPass)

	apt := s.createRound(admin, "Aptitude")
	s.ok(http.MethodPatch, fmt.Sprintf("/api/admin/rounds/%d", apt), admin, gin.H{"name": "Aptitude Test"}, nil)
	s.do(http.MethodPost, fmt.Sprintf("/api/admin/rounds/%d/restore", apt), admin, nil)

	var logs struct {
		Items []struct {
			RequestID string `json:"request_id"`
			Method    string `json:"method"`
			Path      string `json:"path"`
			Status    int    `json:"status"`
		} `json:"items"`
		Total int64 `json:"total"`
	}
	s.ok(http.MethodGet, "/api/admin/audit-logs?page_size=10", admin, nil, &logs)
	if logs.Total != 3 {
		t.Fatalf("audit total = %d, want 3", logs.Total)
	}
	newest := logs.Items[0]
	if newest.Status != http.StatusConflict || !strings.HasSuffix(newest.Path, "/restore") || newest.RequestID == "" {
		t.Errorf("newest audit entry = %+v", newest)
	}
}

func TestMyRoundsStream(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(adminUser, adminPass)
	_, alice := s.student("alice")
	apt := s.createRound(admin, "Aptitude")
	s.startSession(admin, apt)

	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	url := fmt.Sprintf("ws%s/api/jobs/%d/my-rounds/ws?token=%s", strings.TrimPrefix(srv.URL, "http"), s.job.ID, alice)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() roundView {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var msg struct {
			Rounds []roundView `json:"rounds"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if len(msg.Rounds) != 1 {
			t.Fatalf("rounds = %+v", msg.Rounds)
		}
		return msg.Rounds[0]
	}

	first := read()
	second := read()
	if first.Status != "ACTIVE" || first.Token == "" {
		t.Fatalf("first push = %+v", first)
	}
	if second.Token == "" || second.Token == first.Token {
		t.Errorf("refresh did not rotate the token: %q then %q", first.Token, second.Token)
	}

	// the rotated-out token is dead, the fresh one scans
	rec, env := s.do(http.MethodPost, "/api/admin/scan", admin, gin.H{"token": first.Token})
	if rec.Code != http.StatusGone || env.Code != util.CodeTokenExpired {
		t.Errorf("stale token = %d %+v", rec.Code, env)
	}
}

func TestLogin_FailedCounterWriteIsLogged(t *testing.T) {
	s := newTestServer(t)
	s.student("erin")

	err := s.db.Callback().Update().Before("gorm:update").Register("test:fail_update", func(tx *gorm.DB) {
		tx.AddError(errors.New("disk I/O error"))
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	rec, _ := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "erin", "password": "Wrong1234"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("login = %d, want 401", rec.Code)
	}
	if !strings.Contains(buf.String(), "disk I/O error") {
		t.Errorf("log output = %q, want the failed write", buf.String())
	}
}
