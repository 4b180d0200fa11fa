// models/item.go
package models

import (
	"strings"
	"time"
)

const ItemTable = "hvac_items"

// 库存状态的固定集合
const (
	StatusStock     = "Stock"
	StatusDisplay   = "Display"
	StatusOpenBox   = "Open Box"
	StatusOrdered   = "Ordered"
	StatusReserved  = "Reserved"
	StatusInstalled = "Installed/Sold"
	StatusReturned  = "Returned"
)

var Statuses = []string{
	StatusStock,
	StatusDisplay,
	StatusOpenBox,
	StatusOrdered,
	StatusReserved,
	StatusInstalled,
	StatusReturned,
}

// 缺省型号哨兵值：导入/扫码缺 model 时使用
const UnknownModel = "UNKNOWN"

// Item 一台设备/一个部件。id 客户端生成（UUID），
// updated_at 是 LWW 合并与默认排序的依据。
type Item struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	Model      string    `gorm:"size:200;not null" json:"model"`
	Serial     *string   `gorm:"size:120;index" json:"serial"`
	Status     string    `gorm:"size:20;not null;default:'Stock'" json:"status"`
	Location   *string   `gorm:"size:200" json:"location"`
	Notes      *string   `gorm:"type:text" json:"notes"`
	Cost       *float64  `json:"cost"`
	ReceivedAt *string   `gorm:"size:10" json:"receivedAt"` // YYYY-MM-DD
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `gorm:"index;not null;autoUpdateTime:false" json:"updatedAt"`
}

func (Item) TableName() string { return ItemTable }

// NormalizeStatus 非法状态一律回落到 Stock（大小写不敏感）
func NormalizeStatus(s string) string {
	t := strings.TrimSpace(s)
	for _, known := range Statuses {
		if strings.EqualFold(known, t) {
			return known
		}
	}
	return StatusStock
}

// Normalize 补齐存储不变量：model 非空、status 合法、updated_at 非零。
// id 的生成留给调用方（repo / 客户端各自负责）。
func (it *Item) Normalize(now time.Time) {
	it.Model = strings.TrimSpace(it.Model)
	if it.Model == "" {
		it.Model = UnknownModel
	}
	it.Status = NormalizeStatus(it.Status)
	it.Serial = TrimPtr(StrOrEmpty(it.Serial))
	it.Location = TrimPtr(StrOrEmpty(it.Location))
	it.Notes = TrimPtr(StrOrEmpty(it.Notes))
	if it.Cost != nil && *it.Cost < 0 {
		it.Cost = nil
	}
	if it.UpdatedAt.IsZero() {
		it.UpdatedAt = now
	}
}

// SerialValue 统一取 serial（nil 视为空串）
func (it *Item) SerialValue() string { return StrOrEmpty(it.Serial) }

// TrimPtr 空白/空字符串 → nil，其余去掉首尾空白。
// 可选字段统一用 null 表示缺失，不存空串。
func TrimPtr(s string) *string {
	t := strings.TrimSpace(s)
	if t == "" {
		return nil
	}
	return &t
}

func StrOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
