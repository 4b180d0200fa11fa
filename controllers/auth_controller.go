// controllers/auth_controller.go
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"Gin_postgres_redis_hvac_inventory/app"
)

type AuthController struct{ *Srv }

func NewAuthController(s *Srv) *AuthController { return &AuthController{Srv: s} }

// Login 用身份提供方签发的令牌换本服务的会话 Cookie。
// 注册、改密、MFA 之类全在上游，这里只认令牌。
func (ac *AuthController) Login(c *gin.Context) {
	var in struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	subject, email, err := app.VerifyIdentityToken(ac.Cfg.AuthSecret, in.Token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, app.H{"error": "invalid token"})
		return
	}

	if err := ac.issueSession(c.Request.Context(), c.Writer, subject, email); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true, "subject": subject, "email": email})
}

// Logout 删 Redis 会话，Cookie 置空
func (ac *AuthController) Logout(c *gin.Context) {
	if ck, err := c.Request.Cookie(app.AppSessionCookie); err == nil && ck.Value != "" {
		_ = ac.Sess.Delete(c.Request.Context(), ck.Value)
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   ac.secureCookie(),
	})
	c.JSON(http.StatusOK, app.H{"ok": true})
}

func (ac *AuthController) WhoAmI(c *gin.Context) {
	subject, _ := c.Get("subject")
	email, _ := c.Get("email")
	c.JSON(http.StatusOK, app.H{"subject": subject, "email": email})
}
