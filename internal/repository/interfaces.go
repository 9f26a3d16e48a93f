package repository

import "context"

// Store 暴露每个聚合根对应的仓储接口。
type Store interface {
	WatchSessions() WatchSessionRepository
}

// WatchSessionRepository 记录每次支付状态核验会话的结果。
type WatchSessionRepository interface {
	Create(ctx context.Context, session *WatchSession) error
	FindByID(ctx context.Context, id string) (*WatchSession, error)
	List(ctx context.Context, filter WatchSessionFilter) ([]*WatchSession, error)
	DeleteBefore(ctx context.Context, cutoff int64) (int64, error)
}
