package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/YuktaYBhat/Placement-cell-sub000/internal/models"
	"github.com/YuktaYBhat/Placement-cell-sub000/internal/util"

	"github.com/gin-gonic/gin"
)

// currentUser returns the user placed in the context by AuthMiddleware.
func currentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get("currentUser")
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}

func mustUser(c *gin.Context) (*models.User, bool) {
	user, ok := currentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
	}
	return user, ok
}

// uintParam parses a positive numeric path parameter.
func uintParam(c *gin.Context, name string) (uint, bool) {
	id, err := parseID(c.Param(name))
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid "+name)
		return 0, false
	}
	return id, true
}

func parseID(s string) (uint, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, errors.New("id must be positive")
	}
	return uint(n), nil
}

// pageParams reads page and limit style query parameters with defaults.
func pageParams(c *gin.Context, sizeKey string, def int) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page <= 0 {
		page = 1
	}
	size, _ := strconv.Atoi(c.Query(sizeKey))
	if size <= 0 {
		size = def
	}
	if size > 100 {
		size = 100
	}
	return page, size
}
