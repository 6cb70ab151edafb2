package handler

import (
	"github.com/YuktaYBhat/Placement-cell-sub000/internal/models"
	"github.com/YuktaYBhat/Placement-cell-sub000/internal/util"

	"github.com/gin-gonic/gin"
)

func userResp(u *models.User) gin.H {
	return gin.H{
		"id":           u.ID,
		"username":     u.Username,
		"display_name": u.DisplayName,
		"role":         u.Role,
		"created_at":   u.CreatedAt,
	}
}

// GetMe returns the logged in user (requires AuthMiddleware).
func GetMe(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	util.Success(c, util.Response{
		"user": userResp(user),
	})
}
