// agent/agent.go
package agent

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"Gin_postgres_redis_hvac_inventory/cache"
	"Gin_postgres_redis_hvac_inventory/csvio"
	"Gin_postgres_redis_hvac_inventory/models"
	"Gin_postgres_redis_hvac_inventory/reconcile"
	"Gin_postgres_redis_hvac_inventory/scan"
	"Gin_postgres_redis_hvac_inventory/syncclient"
)

var _ Remote = (*syncclient.Client)(nil)

// Remote 远端条目集合的注入点。syncclient.Client 实现它；
// 测试时换成内存假远端即可，不需要起服务。
type Remote interface {
	FetchAll(ctx context.Context) ([]models.Item, error)
	Upsert(ctx context.Context, it models.Item) (models.Item, error)
	Delete(ctx context.Context, id string) error
	Subscribe(ctx context.Context, onEvent func(models.ChangeEvent)) (stop func(), err error)
}

// Agent 把三层流程串起来：
// 用户动作 → 合并引擎（同步、零延迟上屏）→ 远端客户端（异步落库）；
// 远端推送事件走同一个合并引擎，再落本地快照。
// 所有状态变更都在 mu 下串行，等价于单线程事件循环。
type Agent struct {
	mu     sync.Mutex
	engine *reconcile.Engine
	snap   *cache.Store
	remote Remote

	stop   func()
	closed bool

	// 远端写失败上报（乐观状态保留，等用户重试）
	onError func(op string, err error)
	now     func() time.Time
}

func New(remote Remote, snap *cache.Store, onError func(op string, err error)) *Agent {
	if onError == nil {
		onError = func(op string, err error) { log.Printf("sync %s failed: %v", op, err) }
	}
	return &Agent{
		engine:  reconcile.NewEngine(),
		snap:    snap,
		remote:  remote,
		onError: onError,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Start 启动顺序和浏览器版一致：先上缓存快照，再拉全量，最后开推送。
// 拉全量失败不致命（断网继续用缓存），订阅失败也只上报。
func (a *Agent) Start(ctx context.Context) {
	a.mu.Lock()
	a.engine.Load(a.snap.Load())
	a.mu.Unlock()

	if rows, err := a.remote.FetchAll(ctx); err != nil {
		a.onError("fetchAll", err)
	} else {
		a.mu.Lock()
		a.engine.Load(rows)
		a.snap.Save(a.engine.Items())
		a.mu.Unlock()
	}

	stop, err := a.remote.Subscribe(ctx, a.applyRemote)
	if err != nil {
		a.onError("subscribe", err)
		return
	}
	a.mu.Lock()
	a.stop = stop
	a.mu.Unlock()
}

// Close 之后不再接受任何事件或变更（对应视图卸载后的 mounted 守卫）
func (a *Agent) Close() {
	a.mu.Lock()
	a.closed = true
	stop := a.stop
	a.stop = nil
	a.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (a *Agent) applyRemote(ev models.ChangeEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	if a.engine.Apply(ev) {
		a.snap.Save(a.engine.Items())
	}
}

// Items 当前合并视图，updated_at 降序
func (a *Agent) Items() []models.Item {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.engine.Items()
}

func (a *Agent) StatusCounts() map[string]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.engine.StatusCounts()
}

// Upsert 乐观写：先进内存和快照，再异步上送远端。
// 远端确认回来按 LWW 合并（本机回声基本是 no-op，不闪屏）。
func (a *Agent) Upsert(ctx context.Context, it models.Item) models.Item {
	now := a.now()
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	it.Normalize(now)
	reconcile.Touch(&it, now)

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return it
	}
	a.engine.Upsert(it)
	a.snap.Save(a.engine.Items())
	a.mu.Unlock()

	go func() {
		saved, err := a.remote.Upsert(ctx, it)
		if err != nil {
			a.onError("upsert", err)
			return
		}
		a.applyRemote(models.ChangeEvent{Type: models.EventUpdate, Item: saved})
	}()
	return it
}

// Delete 同样先本地后远端；远端侧不存在也不算错
func (a *Agent) Delete(ctx context.Context, id string) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	if a.engine.Delete(id) {
		a.snap.Save(a.engine.Items())
	}
	a.mu.Unlock()

	go func() {
		if err := a.remote.Delete(ctx, id); err != nil {
			a.onError("delete", err)
		}
	}()
}

// Scan 扫码（或手工输入同样的文本）。无效扫码返回 ok=false，纯 no-op。
func (a *Agent) Scan(ctx context.Context, mode scan.Mode, code string) (scan.Result, bool) {
	a.mu.Lock()
	res, ok := scan.Resolve(mode, code, a.now(), a.engine.FindBySerial)
	a.mu.Unlock()
	if !ok {
		return scan.Result{}, false
	}
	res.Item = a.Upsert(ctx, res.Item)
	return res, true
}

// ImportCSV 逐行 upsert（和浏览器版一样简单粗暴），返回导入条数
func (a *Agent) ImportCSV(ctx context.Context, r io.Reader) (int, error) {
	items, err := csvio.Decode(r)
	if err != nil {
		return 0, err
	}
	for _, it := range items {
		a.Upsert(ctx, it)
	}
	return len(items), nil
}

// ExportCSV 导出当前合并视图
func (a *Agent) ExportCSV(w io.Writer) error {
	return csvio.Encode(w, a.Items())
}
