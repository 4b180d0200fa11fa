// reconcile/reconcile.go
package reconcile

import (
	"sort"
	"strings"
	"time"

	"Gin_postgres_redis_hvac_inventory/models"
)

// Engine 把三路输入（初始快照、本地乐观写、远端推送事件）合并成
// 一份按 id 去重的列表。合并规则：同 id 按 updated_at 取最新，
// 时间相等时后到的事件获胜（远端一旦落库即视为权威）。
//
// 只在单一逻辑线程上使用；跨 goroutine 的串行化由调用方负责。
type Engine struct {
	byID map[string]models.Item
	// serial(小写) → id 集合，给扫码查找用的二级索引，免得每次全表扫
	bySerial map[string]map[string]struct{}
}

func NewEngine() *Engine {
	return &Engine{
		byID:     make(map[string]models.Item),
		bySerial: make(map[string]map[string]struct{}),
	}
}

// Load 用快照重置引擎（启动时灌入缓存或 fetchAll 的结果）
func (e *Engine) Load(items []models.Item) {
	e.byID = make(map[string]models.Item, len(items))
	e.bySerial = make(map[string]map[string]struct{})
	for _, it := range items {
		e.Upsert(it)
	}
}

// Upsert 本地乐观写与远端 INSERT/UPDATE 共用的路径。
// 返回 false 表示按 LWW 规则被旧值挡下（stale echo），内存未变。
func (e *Engine) Upsert(in models.Item) bool {
	if in.ID == "" {
		return false
	}
	cur, ok := e.byID[in.ID]
	if ok && in.UpdatedAt.Before(cur.UpdatedAt) {
		return false
	}
	if ok {
		e.unindexSerial(cur)
	}
	e.byID[in.ID] = in
	e.indexSerial(in)
	return true
}

// Delete 幂等：id 不存在时不报错、不改状态
func (e *Engine) Delete(id string) bool {
	cur, ok := e.byID[id]
	if !ok {
		return false
	}
	e.unindexSerial(cur)
	delete(e.byID, id)
	return true
}

// Apply 远端事件入口；INSERT/UPDATE 同路（已存在的 INSERT 当 UPDATE 处理）
func (e *Engine) Apply(ev models.ChangeEvent) bool {
	switch ev.Type {
	case models.EventInsert, models.EventUpdate:
		return e.Upsert(ev.Item)
	case models.EventDelete:
		return e.Delete(ev.Item.ID)
	}
	return false
}

func (e *Engine) Get(id string) (models.Item, bool) {
	it, ok := e.byID[id]
	return it, ok
}

// FindBySerial 扫码查找：serial 大小写不敏感精确匹配。
// 同一 serial 有多台时取 updated_at 最新的一台。
func (e *Engine) FindBySerial(serial string) (models.Item, bool) {
	key := strings.ToLower(strings.TrimSpace(serial))
	if key == "" {
		return models.Item{}, false
	}
	ids, ok := e.bySerial[key]
	if !ok {
		return models.Item{}, false
	}
	var best models.Item
	found := false
	for id := range ids {
		it := e.byID[id]
		if !found || it.UpdatedAt.After(best.UpdatedAt) {
			best, found = it, true
		}
	}
	return best, found
}

// Items 渲染视图：updated_at 降序（最新在前），同刻按 id 保证稳定
func (e *Engine) Items() []models.Item {
	out := make([]models.Item, 0, len(e.byID))
	for _, it := range e.byID {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (e *Engine) Len() int { return len(e.byID) }

// StatusCounts 状态统计（界面上那排数字）
func (e *Engine) StatusCounts() map[string]int {
	counts := make(map[string]int)
	for _, it := range e.byID {
		counts[it.Status]++
	}
	return counts
}

func (e *Engine) indexSerial(it models.Item) {
	key := strings.ToLower(it.SerialValue())
	if key == "" {
		return
	}
	ids, ok := e.bySerial[key]
	if !ok {
		ids = make(map[string]struct{})
		e.bySerial[key] = ids
	}
	ids[it.ID] = struct{}{}
}

func (e *Engine) unindexSerial(it models.Item) {
	key := strings.ToLower(it.SerialValue())
	if key == "" {
		return
	}
	if ids, ok := e.bySerial[key]; ok {
		delete(ids, it.ID)
		if len(ids) == 0 {
			delete(e.bySerial, key)
		}
	}
}

// Touch 本地编辑统一盖当前时间戳，保证 updated_at 单调不减
func Touch(it *models.Item, now time.Time) {
	if now.After(it.UpdatedAt) {
		it.UpdatedAt = now
	}
}
