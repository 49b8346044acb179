package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/shouni/streetview-scene-kit/pkg/domain"
)

// DefaultWindow は高コストなパイプライン呼び出しの間に同一性へ課す
// 既定のクールダウン窓です。
const DefaultWindow = 10 * time.Minute

// Limiter は固定窓のクールダウンを同一性ごとに強制します。
// クールダウンのスロットは操作別ではなく同一性ごとに共有されます。
// どの操作を呼んでも同じ窓がリセットされる設計です。
type Limiter struct {
	store  Store
	window time.Duration
	clock  func() time.Time
}

// NewLimiter は Limiter を初期化します。window が 0 以下の場合は既定値を使います。
func NewLimiter(store Store, window time.Duration) (*Limiter, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{store: store, window: window, clock: time.Now}, nil
}

// Check はクールダウンを検査します。記録が無ければ常に許可です。
// 拒否時は残り分数を *domain.CooldownError として返します。
// 戻り値の時刻は Record へ渡す compare-and-set の前提値です。
func (l *Limiter) Check(ctx context.Context, identity string) (*time.Time, error) {
	last, err := l.store.GetLastRequest(ctx, identity)
	if err != nil {
		return nil, err
	}
	if last == nil {
		return nil, nil
	}

	elapsed := int(l.clock().Sub(*last) / time.Minute)
	windowMinutes := int(l.window / time.Minute)
	if elapsed < windowMinutes {
		return last, &domain.CooldownError{RetryAfterMinutes: windowMinutes - elapsed}
	}
	return last, nil
}

// Record は現在時刻を書き込み、窓の消費を確定します。高コストな外部呼び出しの
// 前に呼ぶこと。最終的に失敗した呼び出しも窓を消費する設計です。
// prev は直前の Check が観測した値で、一致しない場合はほぼ同時の別リクエストが
// 先に窓を消費しているため、窓全体のクールダウンとして拒否します。
func (l *Limiter) Record(ctx context.Context, identity string, prev *time.Time) error {
	ok, err := l.store.SetLastRequest(ctx, identity, prev, l.clock())
	if err != nil {
		return err
	}
	if !ok {
		return &domain.CooldownError{RetryAfterMinutes: int(l.window / time.Minute)}
	}
	return nil
}
