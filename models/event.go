// models/event.go
package models

// 行级变更通知：远端提交 insert/update/delete 后经 Pub/Sub 推给所有客户端
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// ChangeEvent DELETE 时 Item 至少带 ID，其余字段尽量带全
type ChangeEvent struct {
	Type EventType `json:"eventType"`
	Item Item      `json:"item"`
}
