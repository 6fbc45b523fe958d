package metadata

// Meta 定义了存储系统元数据的键值对表结构
type Meta struct {
	// Key 是元数据的唯一键，例如 "last_refresh_id"
	Key string `gorm:"primaryKey;type:varchar(50)"`

	// Value 存储元数据的值
	Value *string `gorm:"type:varchar(200)"`
}

func (Meta) TableName() string {
	return "meta"
}
