package user

import (
	"net/http"

	"github.com/Kesh3805/job-portal/global"
	"github.com/Kesh3805/job-portal/module/user/model"
	"github.com/Kesh3805/job-portal/tools/errs"
	security "github.com/Kesh3805/job-portal/tools/security"
	"github.com/gin-gonic/gin"
)

type loginReq struct {
	UserID string `json:"userId" binding:"required"`
}

// HandlerLogin issues a signed token for a known user id. Credential
// checking lives in the main portal; this endpoint only mints tokens
// for the realtime surface.
func HandlerLogin(dir *model.Directory) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": errs.CodeValidation, "msg": "userId required"})
			return
		}

		u, err := dir.FindByID(c.Request.Context(), req.UserID)
		if err != nil {
			if errs.IsNotFound(err) {
				c.JSON(http.StatusNotFound, gin.H{"code": errs.CodeNotFound, "msg": "user not found"})
				return
			}
			c.JSON(http.StatusServiceUnavailable, gin.H{"code": errs.CodeOf(err), "msg": errs.MsgOf(err)})
			return
		}

		token, expireAt, err := security.Generate(security.DefaultOptions(global.JwtSecret()), u.UserID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": errs.CodeTransient, "msg": "token generation failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token":    token,
			"expireAt": expireAt.Unix(),
			"user":     u.Summary(),
		})
	}
}
