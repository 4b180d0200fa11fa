// controllers/events_controller.go
package controllers

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
)

type EventsController struct{ *Srv }

func NewEventsController(s *Srv) *EventsController { return &EventsController{Srv: s} }

// Events 行级变更的 SSE 推送流。Redis Pub/Sub → HTTP 长连，
// 客户端断开或订阅被关掉时退出。
func (ec *EventsController) Events(c *gin.Context) {
	sub := ec.Hub.Subscribe(c.Request.Context())
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				return false
			}
			raw, err := json.Marshal(ev)
			if err != nil {
				return true
			}
			fmt.Fprintf(w, "event: change\ndata: %s\n\n", raw)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
