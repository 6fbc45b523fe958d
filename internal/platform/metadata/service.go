package metadata

import (
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// --- Generic Accessors ---

// GetValue retrieves a value for a given key from the meta table.
// A missing key yields an empty string, which is a valid default.
func GetValue(db *gorm.DB, key string) (string, error) {
	var meta Meta
	err := db.Where("key = ?", key).First(&meta).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	if meta.Value == nil {
		return "", nil
	}
	return *meta.Value, nil
}

// SetValue creates or updates a value for a given key.
func SetValue(db *gorm.DB, key, value string) error {
	meta := Meta{
		Key:   key,
		Value: &value,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&meta).Error
}

// --- Refresh Bookkeeping ---

// RefreshRecord 描述一次成功的刷新批次
type RefreshRecord struct {
	ID        string
	At        time.Time
	Processed int
}

// RecordRefresh 在同一个事务中写入刷新批次的全部簿记键
func RecordRefresh(db *gorm.DB, rec RefreshRecord) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := SetValue(tx, LastRefreshIDKey, rec.ID); err != nil {
			return err
		}
		if err := SetValue(tx, LastRefreshAtKey, rec.At.UTC().Format(time.RFC3339Nano)); err != nil {
			return err
		}
		return SetValue(tx, LastRefreshCountKey, strconv.Itoa(rec.Processed))
	})
}

// LastRefresh 读取最近一次刷新批次，从未刷新过时返回 nil
func LastRefresh(db *gorm.DB) (*RefreshRecord, error) {
	id, err := GetValue(db, LastRefreshIDKey)
	if err != nil || id == "" {
		return nil, err
	}
	atStr, err := GetValue(db, LastRefreshAtKey)
	if err != nil {
		return nil, err
	}
	at, err := time.Parse(time.RFC3339Nano, atStr)
	if err != nil {
		return nil, err
	}
	countStr, err := GetValue(db, LastRefreshCountKey)
	if err != nil {
		return nil, err
	}
	count, _ := strconv.Atoi(countStr)
	return &RefreshRecord{ID: id, At: at, Processed: count}, nil
}
