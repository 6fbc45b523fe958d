package country

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SlpAus/country-cache-backend/internal/platform/metadata"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const upsertBatchSize = 100

// upsertColumns 是冲突时需要整体覆盖的列，id 保持不变
var upsertColumns = []string{
	"name", "capital", "region", "population", "currency_code",
	"exchange_rate", "estimated_gdp", "flag_url", "last_refreshed_at",
}

// Repository 负责国家记录的持久化
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// nameKey 返回用于大小写不敏感比较的名称
func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Upsert 按名称（不区分大小写）插入或整体覆盖记录，所有被写入的记录时间戳都设为ts。
// 同一批次中名称重复时以最后一条为准。整个批次在一个事务中完成，返回实际写入的记录数。
func (r *Repository) Upsert(ctx context.Context, records []Country, ts time.Time) (int, error) {
	unique := dedupByNameKey(records, ts)
	if len(unique) == 0 {
		return 0, nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for start := 0; start < len(unique); start += upsertBatchSize {
			end := min(start+upsertBatchSize, len(unique))
			batch := unique[start:end]
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name_key"}},
				DoUpdates: clause.AssignmentColumns(upsertColumns),
			}).Create(&batch).Error
			if err != nil {
				return fmt.Errorf("写入国家记录失败 (批次 %d-%d): %w", start, end, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(unique), nil
}

func dedupByNameKey(records []Country, ts time.Time) []Country {
	index := make(map[string]int, len(records))
	unique := make([]Country, 0, len(records))
	for _, rec := range records {
		rec.ID = 0
		rec.NameKey = nameKey(rec.Name)
		rec.LastRefreshedAt = ts
		if rec.NameKey == "" {
			continue
		}
		if i, ok := index[rec.NameKey]; ok {
			unique[i] = rec
			continue
		}
		index[rec.NameKey] = len(unique)
		unique = append(unique, rec)
	}
	return unique
}

// List 按过滤条件返回记录。未知的排序参数按存储顺序返回。
func (r *Repository) List(ctx context.Context, f Filter) ([]Country, error) {
	q := r.db.WithContext(ctx).Model(&Country{})
	if f.Region != "" {
		q = q.Where("region = ?", f.Region)
	}
	if f.Currency != "" {
		q = q.Where("currency_code = ?", f.Currency)
	}

	switch f.Sort {
	case SortGDPDesc:
		// 没有GDP的记录排在最后
		q = q.Order("estimated_gdp IS NULL").Order("estimated_gdp DESC")
	case SortNameAsc:
		q = q.Order("name ASC")
	case SortNameDesc:
		q = q.Order("name DESC")
	case SortPopulationDesc:
		q = q.Order("population DESC")
	case SortPopulationAsc:
		q = q.Order("population ASC")
	}
	q = q.Order("id ASC")

	countries := make([]Country, 0)
	if err := q.Find(&countries).Error; err != nil {
		return nil, fmt.Errorf("查询国家列表失败: %w", err)
	}
	return countries, nil
}

// GetByName 按名称（不区分大小写）查询单条记录
func (r *Repository) GetByName(ctx context.Context, name string) (*Country, error) {
	var c Country
	err := r.db.WithContext(ctx).Where("name_key = ?", nameKey(name)).Take(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("查询国家 %s 失败: %w", name, err)
	}
	return &c, nil
}

// DeleteByName 按名称（不区分大小写）删除记录，返回删除的行数
func (r *Repository) DeleteByName(ctx context.Context, name string) (int64, error) {
	res := r.db.WithContext(ctx).Where("name_key = ?", nameKey(name)).Delete(&Country{})
	if res.Error != nil {
		return 0, fmt.Errorf("删除国家 %s 失败: %w", name, res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteAll 删除全部记录，返回删除的行数
func (r *Repository) DeleteAll(ctx context.Context) (int64, error) {
	// GORM 默认不允许没有 WHERE 条件的全表删除，这里显式允许
	res := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Country{})
	if res.Error != nil {
		return 0, fmt.Errorf("清空国家记录失败: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Status 返回记录总数和最新的刷新时间
func (r *Repository) Status(ctx context.Context) (Status, error) {
	var st Status
	db := r.db.WithContext(ctx)
	if err := db.Model(&Country{}).Count(&st.Total).Error; err != nil {
		return st, fmt.Errorf("统计国家数量失败: %w", err)
	}
	if st.Total == 0 {
		return st, nil
	}

	// 取时间戳列本身而不是聚合结果，不同驱动下都能正确扫描为time.Time
	var latest Country
	err := db.Select("last_refreshed_at").Order("last_refreshed_at DESC").Take(&latest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return st, nil
		}
		return st, fmt.Errorf("查询最近刷新时间失败: %w", err)
	}
	ts := latest.LastRefreshedAt.UTC()
	st.LastRefreshedAt = &ts
	return st, nil
}

// All 返回全部记录，按存储顺序
func (r *Repository) All(ctx context.Context) ([]Country, error) {
	countries := make([]Country, 0)
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&countries).Error; err != nil {
		return nil, fmt.Errorf("读取全部国家记录失败: %w", err)
	}
	return countries, nil
}

// RecordRefresh 保存刷新批次的元数据
func (r *Repository) RecordRefresh(ctx context.Context, rec metadata.RefreshRecord) error {
	return metadata.RecordRefresh(r.db.WithContext(ctx), rec)
}
