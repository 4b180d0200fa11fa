package app

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"Gin_postgres_redis_hvac_inventory/session"
)

const AppSessionCookie = "app_session"

// VerifyIdentityToken 校验外部身份提供方签发的令牌（HS256），
// 只取 sub/email，认证流程本身不归这里管。
func VerifyIdentityToken(secret, tokenString string) (subject, email string, err error) {
	tok, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", "", err
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", errors.New("unexpected claims type")
	}
	subject, _ = claims.GetSubject()
	if subject == "" {
		return "", "", errors.New("token has no subject")
	}
	if v, ok := claims["email"].(string); ok {
		email = v
	}
	return subject, email, nil
}

// AuthRequired 同步接口只关心“当前有没有活跃会话”：
// 先认会话 Cookie，再认 Authorization: Bearer 里的身份令牌。
func AuthRequired(appSess *session.AppSessionStore, cfg Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ck, err := c.Request.Cookie(AppSessionCookie); err == nil && ck.Value != "" {
			as, err := appSess.Get(c.Request.Context(), ck.Value)
			if err == nil {
				c.Set("subject", as.Subject)
				c.Set("email", as.Email)
				c.Next()
				return
			}
		}

		auth := c.GetHeader("Authorization")
		if strings.HasPrefix(auth, "Bearer ") {
			subject, email, err := VerifyIdentityToken(cfg.AuthSecret, strings.TrimPrefix(auth, "Bearer "))
			if err == nil {
				c.Set("subject", subject)
				c.Set("email", email)
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
	}
}
