// realtime/hub.go
package realtime

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"Gin_postgres_redis_hvac_inventory/models"
)

// 条目表的行级变更都广播到这一个频道
const Channel = "hvac:items:changes"

// Hub 基于 Redis Pub/Sub 的推送通道：写路径 Publish 一条 ChangeEvent，
// 所有订阅中的客户端（包括发起写的那个，回声由合并规则消化）都会收到。
type Hub struct {
	rdb *redis.Client
}

func NewHub(rdb *redis.Client) *Hub { return &Hub{rdb: rdb} }

func (h *Hub) Publish(ctx context.Context, ev models.ChangeEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return h.rdb.Publish(ctx, Channel, b).Err()
}

// Subscription C 在 Close 后关闭，之后不再投递
type Subscription struct {
	C  <-chan models.ChangeEvent
	ps *redis.PubSub
}

func (s *Subscription) Close() { _ = s.ps.Close() }

func (h *Hub) Subscribe(ctx context.Context) *Subscription {
	ps := h.rdb.Subscribe(ctx, Channel)
	ch := make(chan models.ChangeEvent, 16)
	go func() {
		defer close(ch)
		for msg := range ps.Channel() {
			var ev models.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("realtime: bad payload: %v", err)
				continue
			}
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return &Subscription{C: ch, ps: ps}
}
