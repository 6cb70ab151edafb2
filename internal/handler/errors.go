package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/YuktaYBhat/Placement-cell-sub000/internal/drive"
	"github.com/YuktaYBhat/Placement-cell-sub000/internal/util"

	"github.com/gin-gonic/gin"
)

type errorMapping struct {
	target error
	status int
	code   int
	label  string
}

// order matters: the first match wins
var errorMappings = []errorMapping{
	{drive.ErrValidation, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters"},
	{drive.ErrNotFound, http.StatusNotFound, util.CodeNotFound, "not found"},
	{drive.ErrTokenNotFound, http.StatusNotFound, util.CodeTokenUnknown, "unknown token"},
	{drive.ErrTokenExpired, http.StatusGone, util.CodeTokenExpired, "token expired"},
	{drive.ErrTokenConsumed, http.StatusConflict, util.CodeTokenUsed, "token already used"},
	{drive.ErrDuplicateAttendance, http.StatusConflict, util.CodeDuplicate, "already attended"},
	{drive.ErrNotEligible, http.StatusForbidden, util.CodeNotEligible, "not eligible"},
	{drive.ErrNotActive, http.StatusConflict, util.CodeNotActive, "round not active"},
	{drive.ErrInvalidState, http.StatusConflict, util.CodeInvalidState, "operation not allowed now"},
	{drive.ErrConflict, http.StatusConflict, util.CodeConflict, "conflict, try again"},
}

// respondError writes the envelope for an engine error. Admins get the full
// error text, students only the coarse label.
func respondError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			msg := m.label
			if u, ok := currentUser(c); ok && u.IsAdmin() {
				msg = err.Error()
			}
			util.Error(c, m.status, m.code, msg)
			return
		}
	}
	log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "internal error")
}
