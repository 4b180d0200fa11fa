// controllers/srv.go
package controllers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"Gin_postgres_redis_hvac_inventory/app"
	"Gin_postgres_redis_hvac_inventory/db"
	"Gin_postgres_redis_hvac_inventory/models"
	"Gin_postgres_redis_hvac_inventory/realtime"
	"Gin_postgres_redis_hvac_inventory/session"
)

type Srv struct {
	Repo *db.Repo
	Sess *session.AppSessionStore
	Hub  *realtime.Hub
	Cfg  app.Config
}

func GetSrv(a *app.App) *Srv {
	return &Srv{
		Repo: db.NewRepo(a.DB),
		Sess: a.AppSessions(),
		Hub:  realtime.NewHub(a.RDB),
		Cfg:  a.Config,
	}
}

// --- helpers ---

func (s *Srv) secureCookie() bool {
	return len(s.Cfg.WebOrigins) > 0 && strings.HasPrefix(s.Cfg.WebOrigins[0], "https://")
}

// 统一设置业务会话 Cookie
func (s *Srv) setAppCookie(w http.ResponseWriter, sessionID string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.secureCookie(),
		MaxAge:   int(maxAge / time.Second),
	})
}

// 登录成功：创建会话 + 下发 Cookie
func (s *Srv) issueSession(ctx context.Context, w http.ResponseWriter, subject, email string) error {
	id := uuid.NewString()
	if err := s.Sess.Create(ctx, id, subject, email); err != nil {
		return err
	}
	s.setAppCookie(w, id, s.Cfg.SessionTTL)
	return nil
}

// persistItem 写路径的公共出口：补 id / created_at、归一化、
// 由服务端盖 updated_at，落库后广播变更事件。
// 返回这次是新建还是覆盖（决定广播 INSERT 还是 UPDATE）。
func (s *Srv) persistItem(ctx context.Context, it *models.Item, now time.Time) (created bool, err error) {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	existing, err := s.Repo.FindItemByID(ctx, it.ID)
	if err != nil {
		return false, err
	}

	it.Normalize(now)
	it.UpdatedAt = now // 落库时间戳以服务端为准
	if existing != nil {
		it.CreatedAt = existing.CreatedAt
	} else {
		it.CreatedAt = now
		created = true
	}

	if err := s.Repo.UpsertItem(ctx, it); err != nil {
		return false, err
	}

	evType := models.EventUpdate
	if created {
		evType = models.EventInsert
	}
	if perr := s.Hub.Publish(ctx, models.ChangeEvent{Type: evType, Item: *it}); perr != nil {
		// 推送失败不影响写入本身，订阅方靠下次 fetchAll 补齐
		log.Printf("publish change event: %v", perr)
	}
	return created, nil
}
