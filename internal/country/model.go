package country

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound         = errors.New("country not found")
	ErrDatabaseNotReady = errors.New("database not ready")
	// ErrDatabaseInitFailed 表示表结构初始化已经失败，而不是仍在进行中
	ErrDatabaseInitFailed = fmt.Errorf("%w: initialization failed", ErrDatabaseNotReady)
)

// Country 是缓存的国家记录。NameKey 是名称的小写形式，用来保证大小写不敏感的唯一性。
type Country struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"type:varchar(200);not null;uniqueIndex" json:"name"`
	NameKey         string    `gorm:"type:varchar(200);not null;uniqueIndex" json:"-"`
	Capital         *string   `gorm:"type:varchar(200)" json:"capital"`
	Region          *string   `gorm:"type:varchar(100);index" json:"region"`
	Population      int64     `gorm:"not null;default:0" json:"population"`
	CurrencyCode    *string   `gorm:"type:varchar(10);index" json:"currency_code"`
	ExchangeRate    *float64  `json:"exchange_rate"`
	EstimatedGDP    *float64  `gorm:"column:estimated_gdp" json:"estimated_gdp"`
	FlagURL         *string   `gorm:"type:varchar(500)" json:"flag_url"`
	LastRefreshedAt time.Time `gorm:"not null" json:"last_refreshed_at"`
}

func (Country) TableName() string {
	return "countries"
}

// 排序参数
const (
	SortGDPDesc        = "gdp_desc"
	SortNameAsc        = "name_asc"
	SortNameDesc       = "name_desc"
	SortPopulationDesc = "population_desc"
	SortPopulationAsc  = "population_asc"
)

// Filter 是列表查询的条件，空字符串表示不过滤
type Filter struct {
	Region   string
	Currency string
	Sort     string
}

// Status 汇总了当前存储的状态。库为空时 LastRefreshedAt 为nil。
type Status struct {
	Total           int64      `json:"total_countries"`
	LastRefreshedAt *time.Time `json:"last_refreshed_at"`
}

// RefreshResult 是一次刷新的结果
type RefreshResult struct {
	ID              string    `json:"-"`
	Message         string    `json:"message"`
	LastRefreshedAt time.Time `json:"last_refreshed_at"`
	Processed       int       `json:"countries_processed"`
}
