// app/seenmw.go
package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// TouchLastSync 记录每个账号最近一次同步时间（纯 Redis，不碰库）。
// SetNX 做节流，窗口内只写一次。
func TouchLastSync(rdb *redis.Client, throttle time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get("subject")
		if !ok {
			c.Next()
			return
		}
		subject, _ := v.(string)
		if subject == "" {
			c.Next()
			return
		}

		key := "hvac:sync:throttle:" + subject
		if ok, _ := rdb.SetNX(c, key, "1", throttle).Result(); ok {
			// 忽略错误，不阻塞请求
			_ = rdb.Set(c, "hvac:sync:lastseen:"+subject, time.Now().UTC().Format(time.RFC3339), 0).Err()
		}
		c.Next()
	}
}
