// controllers/csv_controller.go
package controllers

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"Gin_postgres_redis_hvac_inventory/app"
	"Gin_postgres_redis_hvac_inventory/csvio"
	"Gin_postgres_redis_hvac_inventory/db"
)

type CSVController struct{ *Srv }

func NewCSVController(s *Srv) *CSVController { return &CSVController{Srv: s} }

// Export 导出 CSV，支持和列表一样的过滤参数
func (cc *CSVController) Export(c *gin.Context) {
	q := db.ItemsQuery{
		Q:        c.Query("q"),
		Status:   c.Query("status"),
		Location: c.Query("location"),
	}
	items, err := cc.Repo.ListItems(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}

	filename := fmt.Sprintf("inventory-%s.csv", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := csvio.Encode(c.Writer, items); err != nil {
		// 头已经发出去了，只能记日志
		c.Error(err)
	}
}

// Import 逐行 upsert（坏行在解码层已被跳过），每行都会广播变更事件
func (cc *CSVController) Import(c *gin.Context) {
	var src io.Reader = c.Request.Body
	if file, _, err := c.Request.FormFile("file"); err == nil {
		defer file.Close()
		src = file
	}

	items, err := csvio.Decode(src)
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	now := time.Now().UTC()
	imported, failed := 0, 0
	for i := range items {
		if _, err := cc.persistItem(ctx, &items[i], now); err != nil {
			failed++
			continue
		}
		imported++
	}
	c.JSON(http.StatusOK, app.H{"imported": imported, "failed": failed})
}
