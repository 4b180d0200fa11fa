// controllers/scan_controller.go
package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"Gin_postgres_redis_hvac_inventory/app"
	"Gin_postgres_redis_hvac_inventory/models"
	"Gin_postgres_redis_hvac_inventory/scan"
)

type ScanController struct{ *Srv }

func NewScanController(s *Srv) *ScanController { return &ScanController{Srv: s} }

// Scan 解码文本 → 条目变更。摄像头扫的和手工敲的走同一个入口。
// IN：有就置回 Stock，没有就建新；OUT：置 Installed/Sold，
// 没见过的 serial 建占位条目留备注。
func (sc *ScanController) Scan(c *gin.Context) {
	var in struct {
		Mode string `json:"mode" binding:"required"`
		Code string `json:"code"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	mode := scan.Mode(strings.ToUpper(strings.TrimSpace(in.Mode)))
	if mode != scan.ModeIn && mode != scan.ModeOut {
		c.JSON(http.StatusBadRequest, app.H{"error": "mode must be IN or OUT"})
		return
	}

	ctx := c.Request.Context()
	now := time.Now().UTC()
	find := func(serial string) (models.Item, bool) {
		it, err := sc.Repo.FindItemBySerial(ctx, serial)
		if err != nil || it == nil {
			return models.Item{}, false
		}
		return *it, true
	}

	res, ok := scan.Resolve(mode, in.Code, now, find)
	if !ok {
		// 空码不报错：扫码循环得继续跑
		c.JSON(http.StatusOK, app.H{"ok": true, "noop": true})
		return
	}

	created, err := sc.persistItem(ctx, &res.Item, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"item": res.Item, "created": created})
}
