// db/repo_items.go
package db

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Gin_postgres_redis_hvac_inventory/models"
)

// ItemsQuery 列表过滤：Q 模糊匹配 model/serial/notes/location，
// Status 精确，Location 子串匹配
type ItemsQuery struct {
	Q        string
	Status   string
	Location string
}

// ListItems 全量返回（这个规模用不上分页），updated_at 倒序
func (r *Repo) ListItems(ctx context.Context, q ItemsQuery) ([]models.Item, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Item{})
	if s := strings.TrimSpace(q.Q); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		tx = tx.Where(
			"LOWER(model) LIKE ? OR LOWER(COALESCE(serial, '')) LIKE ? OR LOWER(COALESCE(notes, '')) LIKE ? OR LOWER(COALESCE(location, '')) LIKE ?",
			like, like, like, like,
		)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", models.NormalizeStatus(q.Status))
	}
	if s := strings.TrimSpace(q.Location); s != "" {
		tx = tx.Where("LOWER(COALESCE(location, '')) LIKE ?", "%"+strings.ToLower(s)+"%")
	}

	var items []models.Item
	err := tx.Order("updated_at DESC").Find(&items).Error
	return items, err
}

func (r *Repo) FindItemByID(ctx context.Context, id string) (*models.Item, error) {
	var it models.Item
	err := r.DB.WithContext(ctx).First(&it, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// FindItemBySerial 大小写不敏感精确匹配；同 serial 多台取最新。
// 找不到返回 (nil, nil)。
func (r *Repo) FindItemBySerial(ctx context.Context, serial string) (*models.Item, error) {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return nil, nil
	}
	var it models.Item
	err := r.DB.WithContext(ctx).
		Where("LOWER(serial) = LOWER(?)", serial).
		Order("updated_at DESC").
		First(&it).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// UpsertItem 同 id 重复上送是幂等替换（ON CONFLICT ... DO UPDATE），
// 调用方负责先盖好 updated_at / created_at
func (r *Repo) UpsertItem(ctx context.Context, it *models.Item) error {
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(it).Error
}

// DeleteItem 幂等；返回是否真删到了行
func (r *Repo) DeleteItem(ctx context.Context, id string) (bool, error) {
	res := r.DB.WithContext(ctx).Delete(&models.Item{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CountByStatus 界面统计那排数字
func (r *Repo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Status string
		N      int64
	}
	var rows []row
	err := r.DB.WithContext(ctx).Model(&models.Item{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.N
	}
	return counts, nil
}
