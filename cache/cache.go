// cache/cache.go
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"

	"Gin_postgres_redis_hvac_inventory/models"
)

// 本地快照的存储键（对应浏览器版的 localStorage key）
const DefaultKey = "inventory-cache-v2"

// KV 同步键值存储边界：单键存全量快照就够用了
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}

// FileKV 一个键一个文件
type FileKV struct {
	Dir string
}

func NewFileKV(dir string) *FileKV { return &FileKV{Dir: dir} }

func (f *FileKV) path(key string) string { return filepath.Join(f.Dir, key+".json") }

func (f *FileKV) Get(key string) ([]byte, error) {
	return os.ReadFile(f.path(key))
}

func (f *FileKV) Set(key string, value []byte) error {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(f.path(key), value, 0o644)
}

// Store 断网/刷新兜底用的本地快照。远端不可达时 UI 先吃这份数据。
type Store struct {
	kv  KV
	key string
}

func NewStore(kv KV, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{kv: kv, key: key}
}

// Load 读不到、解析不了都当“没有数据”，从不报错
func (s *Store) Load() []models.Item {
	raw, err := s.kv.Get(s.key)
	if err != nil {
		return nil
	}
	var items []models.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	return items
}

// Save 尽力而为：写失败（磁盘满之类）吞掉，不挡内存更新
func (s *Store) Save(items []models.Item) {
	raw, err := json.Marshal(items)
	if err != nil {
		return
	}
	_ = s.kv.Set(s.key, raw)
}
