// scan/scan.go
package scan

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"Gin_postgres_redis_hvac_inventory/models"
)

// 扫码方向：IN 入库（到货/退回上架），OUT 出库（装机/售出）
type Mode string

const (
	ModeIn  Mode = "IN"
	ModeOut Mode = "OUT"
)

// Lookup 按 serial 找现有条目（大小写不敏感），由调用方提供，
// 所以解析器本身不关心数据来自内存引擎还是数据库。
type Lookup func(serial string) (models.Item, bool)

// Result Created=true 表示这次扫码新建了条目而不是改了现有条目
type Result struct {
	Item    models.Item
	Created bool
}

// ParseCode 约定语法：含竖线时 "MODEL|SERIAL"，否则整串都是 serial。
// 只认第一根竖线，serial 里允许再出现竖线。
func ParseCode(code string) (model, serial string) {
	code = strings.TrimSpace(code)
	if i := strings.Index(code, "|"); i >= 0 {
		model = strings.TrimSpace(code[:i])
		serial = strings.TrimSpace(code[i+1:])
	} else {
		serial = code
	}
	if model == "" {
		model = models.UnknownModel
	}
	return model, serial
}

// Resolve 把解码文本变成一次条目变更。纯函数：不做 I/O，
// 摄像头扫出来的和手工敲进来的一视同仁。
// ok=false 表示解析后 model、serial 都为空（无效扫码，按无操作处理）。
func Resolve(mode Mode, code string, now time.Time, find Lookup) (Result, bool) {
	model, serial := ParseCode(code)
	if serial == "" && model == models.UnknownModel {
		return Result{}, false
	}

	target := models.StatusStock
	if mode == ModeOut {
		target = models.StatusInstalled
	}

	if serial != "" {
		if existing, found := find(serial); found {
			existing.Status = target
			existing.UpdatedAt = now
			return Result{Item: existing}, true
		}
	}

	it := models.Item{
		ID:        uuid.NewString(),
		Model:     model,
		Serial:    models.TrimPtr(serial),
		Status:    target,
		UpdatedAt: now,
	}
	if mode == ModeOut {
		// 没见过的 serial 直接扫出库：留条占位备注等人工核对
		it.Notes = models.TrimPtr("Scanned OUT (placeholder)")
	}
	return Result{Item: it, Created: true}, true
}
