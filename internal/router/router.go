package router

import (
	"net/http"

	"github.com/YuktaYBhat/Placement-cell-sub000/internal/config"
	"github.com/YuktaYBhat/Placement-cell-sub000/internal/drive"
	"github.com/YuktaYBhat/Placement-cell-sub000/internal/handler"
	"github.com/YuktaYBhat/Placement-cell-sub000/internal/middleware"
	"github.com/YuktaYBhat/Placement-cell-sub000/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter configures the gin engine with every API route.
func SetupRouter(cfg *config.Config, db *gorm.DB, eng *drive.Engine) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), middleware.RequestID())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ====== API ======
	api := r.Group("/api")

	jwtSecret := cfg.JWT.Secret
	authHandler := handler.NewAuthHandler(db, cfg.JWT, cfg.Security.BcryptCost)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	// logged in users
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(jwtSecret, db))

	protected.GET("/me", handler.GetMe)
	protected.POST("/profile", handler.UpdateProfile(db))
	protected.POST("/profile/password", handler.ChangePassword(db, cfg.Security.BcryptCost))

	studentHandler := handler.NewStudentHandler(eng, cfg.Drive.RefreshInterval, cfg.CORS.AllowedOrigins)
	protected.GET("/jobs/:jobId/my-rounds", studentHandler.MyRounds)
	protected.GET("/jobs/:jobId/my-rounds/ws", studentHandler.MyRoundsStream)
	protected.POST("/rounds/:roundId/token", studentHandler.IssueToken)

	// placement cell console
	admin := protected.Group("/admin")
	admin.Use(
		middleware.RequireRole(models.RoleAdmin),
		middleware.AuditMiddleware(db),
	)

	roundHandler := handler.NewRoundHandler(eng)
	admin.GET("/jobs/:jobId/rounds", roundHandler.ListRounds)
	admin.POST("/jobs/:jobId/rounds", roundHandler.CreateRound)
	admin.PATCH("/rounds/:roundId", roundHandler.RenameRound)
	admin.POST("/rounds/:roundId/reorder", roundHandler.ReorderRound)
	admin.POST("/rounds/:roundId/remove", roundHandler.RemoveRound)
	admin.POST("/rounds/:roundId/restore", roundHandler.RestoreRound)

	sessionHandler := handler.NewSessionHandler(eng)
	admin.POST("/rounds/:roundId/sessions", sessionHandler.StartSession)
	admin.PATCH("/sessions/:sessionId", sessionHandler.UpdateSession)

	attendanceHandler := handler.NewAttendanceHandler(eng, cfg.App.PageSize)
	admin.POST("/scan", attendanceHandler.Scan)
	admin.PATCH("/attendance/:attendanceId", attendanceHandler.SetOutcome)
	admin.GET("/jobs/:jobId/attendance", attendanceHandler.ListAttendance)

	logHandler := handler.NewLogHandler(db)
	admin.GET("/audit-logs", logHandler.ListLogs)

	return r
}
