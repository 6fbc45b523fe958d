package metadata

// --- Meta Keys ---
// 这些键用于 meta 表的 key 列，记录最近一次刷新批次的簿记信息。
const (
	// LastRefreshIDKey 存储最近一次成功刷新批次的UUID
	LastRefreshIDKey = "last_refresh_id"

	// LastRefreshAtKey 存储最近一次成功刷新的时间 (RFC3339, UTC)
	LastRefreshAtKey = "last_refresh_at"

	// LastRefreshCountKey 存储最近一次刷新处理的国家数量
	LastRefreshCountKey = "last_refresh_count"
)
