// csvio/csvio.go
package csvio

import (
	"bufio"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"Gin_postgres_redis_hvac_inventory/models"
)

// 导出列的固定顺序（导入时不依赖顺序，按表头名取列）
var Header = []string{"Model", "Serial", "Status", "Location", "Notes", "Cost", "ReceivedAt", "UpdatedAt"}

// Encode 列表 → CSV。引号转义交给 encoding/csv：
// 只有含逗号/引号/换行的字段才会被包引号，空可选字段输出为空列。
func Encode(w io.Writer, items []models.Item) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, it := range items {
		rec := []string{
			it.Model,
			models.StrOrEmpty(it.Serial),
			it.Status,
			models.StrOrEmpty(it.Location),
			models.StrOrEmpty(it.Notes),
			formatCost(it.Cost),
			models.StrOrEmpty(it.ReceivedAt),
			it.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Decode CSV → 列表。尽力而为：
//   - 表头大小写不敏感，列顺序随意，可带可不带 Id 列
//   - Model 缺省 UNKNOWN，Status 缺省/非法回落 Stock，UpdatedAt 缺省取当前时间
//   - Cost 解析失败按缺失处理，坏行跳过不中断
//   - 容忍 CRLF 与 UTF-8 BOM
func Decode(r io.Reader) ([]models.Item, error) {
	cr := csv.NewReader(skipBOM(r))
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}

	now := time.Now().UTC()
	var items []models.Item
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// 坏行：跳过，继续导入其余行
			continue
		}
		get := func(name string) string {
			idx, ok := col[name]
			if !ok || idx >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[idx])
		}

		it := models.Item{
			ID:         get("id"),
			Model:      get("model"),
			Serial:     models.TrimPtr(get("serial")),
			Status:     get("status"),
			Location:   models.TrimPtr(get("location")),
			Notes:      models.TrimPtr(get("notes")),
			Cost:       parseCost(get("cost")),
			ReceivedAt: models.TrimPtr(get("receivedat")),
			UpdatedAt:  parseTime(get("updatedat"), now),
		}
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		it.Normalize(now)
		items = append(items, it)
	}
	return items, nil
}

func formatCost(c *float64) string {
	if c == nil {
		return ""
	}
	return strconv.FormatFloat(*c, 'f', -1, 64)
}

func parseCost(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}

func parseTime(s string, fallback time.Time) time.Time {
	if s == "" {
		return fallback
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}
	return fallback
}

// Excel 导出的 CSV 常带 UTF-8 BOM，读表头前剥掉
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	peeked, err := br.Peek(3)
	if err == nil && peeked[0] == 0xEF && peeked[1] == 0xBB && peeked[2] == 0xBF {
		br.Discard(3)
	}
	return br
}
