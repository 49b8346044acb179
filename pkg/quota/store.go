package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Record は caller_quotas テーブルの 1 行で、同一性ごとの最終リクエスト時刻を
// 保持します。パイプラインが触れる唯一の永続状態です。
type Record struct {
	Identity      string     `gorm:"primaryKey;column:identity"`
	LastRequestAt *time.Time `gorm:"column:last_request_at"`
}

func (Record) TableName() string { return "caller_quotas" }

// Store は同一性ごとの最終リクエスト時刻への狭いインターフェースです。
type Store interface {
	// GetLastRequest は最終リクエスト時刻を返します。記録が無い場合は nil です。
	GetLastRequest(ctx context.Context, identity string) (*time.Time, error)
	// SetLastRequest は prev が現在値と一致する場合のみ now を書き込みます
	// （compare-and-set）。書き込めなかった場合は false を返します。
	SetLastRequest(ctx context.Context, identity string, prev *time.Time, now time.Time) (bool, error)
}

// GormStore は Store の gorm 実装です。条件付き UPDATE により、同一 identity の
// ほぼ同時のリクエストが両方クールダウン検査を通過する競合を閉じます。
type GormStore struct {
	db *gorm.DB
}

// NewGormStore は GormStore を初期化します。
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	return &GormStore{db: db}, nil
}

// Migrate は caller_quotas テーブルを作成します。
func (s *GormStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&Record{})
}

func (s *GormStore) GetLastRequest(ctx context.Context, identity string) (*time.Time, error) {
	var rec Record
	err := s.db.WithContext(ctx).First(&rec, "identity = ?", identity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec.LastRequestAt, nil
}

func (s *GormStore) SetLastRequest(ctx context.Context, identity string, prev *time.Time, now time.Time) (bool, error) {
	if prev == nil {
		// 行が無い前提の初回書き込み。主キー衝突は同時リクエストの負けとして
		// 条件付き更新に切り替える。
		err := s.db.WithContext(ctx).Create(&Record{Identity: identity, LastRequestAt: &now}).Error
		if err == nil {
			return true, nil
		}
		res := s.db.WithContext(ctx).Model(&Record{}).
			Where("identity = ? AND last_request_at IS NULL", identity).
			Update("last_request_at", now)
		if res.Error != nil {
			return false, res.Error
		}
		return res.RowsAffected == 1, nil
	}

	res := s.db.WithContext(ctx).Model(&Record{}).
		Where("identity = ? AND last_request_at = ?", identity, *prev).
		Update("last_request_at", now)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
