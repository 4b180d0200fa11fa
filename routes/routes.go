package routes

import (
	"time"

	"github.com/gin-gonic/gin"

	"Gin_postgres_redis_hvac_inventory/app"
	"Gin_postgres_redis_hvac_inventory/controllers"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	// 控制器与依赖
	s := controllers.GetSrv(a)
	authCtl := controllers.NewAuthController(s)
	itemCtl := controllers.NewItemController(s)
	scanCtl := controllers.NewScanController(s)
	csvCtl := controllers.NewCSVController(s)
	evCtl := controllers.NewEventsController(s)

	// 复用的中间件
	authMW := app.AuthRequired(s.Sess, a.Config)
	seenMW := app.TouchLastSync(a.RDB, 5*time.Minute)

	// ------------------------------
	// 会话（登录公开，其余受保护）
	// ------------------------------
	auth := r.Group("/auth")
	{
		auth.POST("/login", authCtl.Login)
	}
	authed := auth.Group("", authMW)
	{
		authed.POST("/logout", authCtl.Logout)
		authed.GET("/whoami", authCtl.WhoAmI)
	}

	// ------------------------------
	// 条目集合（CRUD + 统计 + CSV + 推送流）
	// ------------------------------
	items := r.Group("/api/items", authMW, seenMW)
	{
		items.GET("", itemCtl.ListItems) // ?q=&status=&location=
		items.PUT("", itemCtl.UpsertItem)
		items.DELETE("/:id", itemCtl.DeleteItem)
		items.GET("/stats", itemCtl.Stats)
		items.GET("/export", csvCtl.Export)
		items.POST("/import", csvCtl.Import)
		items.GET("/events", evCtl.Events)
	}

	// 扫码（IN/OUT）
	r.POST("/api/scan", authMW, seenMW, scanCtl.Scan)
}
