// controllers/item_controller.go
package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"Gin_postgres_redis_hvac_inventory/app"
	"Gin_postgres_redis_hvac_inventory/db"
	"Gin_postgres_redis_hvac_inventory/models"
)

type ItemController struct{ *Srv }

func NewItemController(s *Srv) *ItemController { return &ItemController{Srv: s} }

// 列表（?q=&status=&location=），updated_at 倒序
func (ic *ItemController) ListItems(c *gin.Context) {
	q := db.ItemsQuery{
		Q:        c.Query("q"),
		Status:   c.Query("status"),
		Location: c.Query("location"),
	}
	items, err := ic.Repo.ListItems(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	if items == nil {
		items = []models.Item{}
	}
	c.JSON(http.StatusOK, app.H{"items": items})
}

// 整条 upsert：同 id 重复上送是幂等替换，updated_at 由服务端盖章
func (ic *ItemController) UpsertItem(c *gin.Context) {
	var in models.Item
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	created, err := ic.persistItem(c.Request.Context(), &in, time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, in)
}

// 删除：id 不存在也返回 ok（幂等）
func (ic *ItemController) DeleteItem(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, app.H{"error": "missing item id"})
		return
	}

	deleted, err := ic.Repo.DeleteItem(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	if deleted {
		ev := models.ChangeEvent{Type: models.EventDelete, Item: models.Item{ID: id}}
		_ = ic.Hub.Publish(c.Request.Context(), ev)
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// 状态统计
func (ic *ItemController) Stats(c *gin.Context) {
	counts, err := ic.Repo.CountByStatus(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	c.JSON(http.StatusOK, app.H{"total": total, "byStatus": counts})
}
