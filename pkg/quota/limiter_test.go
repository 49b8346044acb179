package quota

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/streetview-scene-kit/pkg/domain"
)

// fakeStore はメモリ上の Store 実装です。CAS の成否を単純比較で模倣します。
type fakeStore struct {
	records map[string]*time.Time
	failCAS bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*time.Time)}
}

func (s *fakeStore) GetLastRequest(ctx context.Context, identity string) (*time.Time, error) {
	return s.records[identity], nil
}

func (s *fakeStore) SetLastRequest(ctx context.Context, identity string, prev *time.Time, now time.Time) (bool, error) {
	if s.failCAS {
		return false, nil
	}
	current := s.records[identity]
	if (prev == nil) != (current == nil) {
		return false, nil
	}
	if prev != nil && !prev.Equal(*current) {
		return false, nil
	}
	s.records[identity] = &now
	return true, nil
}

func newTestLimiter(t *testing.T, store Store, now time.Time) *Limiter {
	t.Helper()
	l, err := NewLimiter(store, DefaultWindow)
	require.NoError(t, err)
	l.clock = func() time.Time { return now }
	return l
}

func TestLimiter_Check(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("記録が無い同一性は常に許可される", func(t *testing.T) {
		l := newTestLimiter(t, newFakeStore(), now)

		prev, err := l.Check(ctx, "user-1")
		require.NoError(t, err)
		assert.Nil(t, prev)
	})

	t.Run("3分後の再呼び出しは残り7分で拒否される", func(t *testing.T) {
		store := newFakeStore()
		last := now.Add(-3 * time.Minute)
		store.records["user-1"] = &last
		l := newTestLimiter(t, store, now)

		_, err := l.Check(ctx, "user-1")

		var cooldown *domain.CooldownError
		require.ErrorAs(t, err, &cooldown)
		assert.Equal(t, 7, cooldown.RetryAfterMinutes)
	})

	t.Run("残り分数は常に1以上10以下になる", func(t *testing.T) {
		store := newFakeStore()
		l := newTestLimiter(t, store, now)

		for elapsed := 0; elapsed < 10; elapsed++ {
			last := now.Add(-time.Duration(elapsed) * time.Minute)
			store.records["user-1"] = &last

			_, err := l.Check(ctx, "user-1")
			var cooldown *domain.CooldownError
			require.ErrorAs(t, err, &cooldown, "elapsed=%d", elapsed)
			assert.GreaterOrEqual(t, cooldown.RetryAfterMinutes, 1)
			assert.LessOrEqual(t, cooldown.RetryAfterMinutes, 10)
			assert.Equal(t, 10-elapsed, cooldown.RetryAfterMinutes)
		}
	})

	t.Run("窓が満了していれば許可され、前回時刻が返る", func(t *testing.T) {
		store := newFakeStore()
		last := now.Add(-10 * time.Minute)
		store.records["user-1"] = &last
		l := newTestLimiter(t, store, now)

		prev, err := l.Check(ctx, "user-1")
		require.NoError(t, err)
		require.NotNil(t, prev)
		assert.True(t, prev.Equal(last))
	})

	t.Run("9分59秒経過はまだ拒否される（分は切り捨て）", func(t *testing.T) {
		store := newFakeStore()
		last := now.Add(-(9*time.Minute + 59*time.Second))
		store.records["user-1"] = &last
		l := newTestLimiter(t, store, now)

		_, err := l.Check(ctx, "user-1")

		var cooldown *domain.CooldownError
		require.ErrorAs(t, err, &cooldown)
		assert.Equal(t, 1, cooldown.RetryAfterMinutes)
	})
}

func TestLimiter_Record(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("記録後は次の Check が拒否される", func(t *testing.T) {
		store := newFakeStore()
		l := newTestLimiter(t, store, now)

		prev, err := l.Check(ctx, "user-1")
		require.NoError(t, err)
		require.NoError(t, l.Record(ctx, "user-1", prev))

		_, err = l.Check(ctx, "user-1")
		var cooldown *domain.CooldownError
		require.ErrorAs(t, err, &cooldown)
		assert.Equal(t, 10, cooldown.RetryAfterMinutes)
	})

	t.Run("CAS に負けた場合はクールダウンとして拒否される", func(t *testing.T) {
		store := newFakeStore()
		store.failCAS = true
		l := newTestLimiter(t, store, now)

		err := l.Record(ctx, "user-1", nil)

		var cooldown *domain.CooldownError
		require.ErrorAs(t, err, &cooldown)
		assert.Equal(t, 10, cooldown.RetryAfterMinutes)
	})

	t.Run("時刻は単調非減少で更新される", func(t *testing.T) {
		store := newFakeStore()
		l := newTestLimiter(t, store, now)
		require.NoError(t, l.Record(ctx, "user-1", nil))

		later := now.Add(11 * time.Minute)
		l.clock = func() time.Time { return later }

		prev, err := l.Check(ctx, "user-1")
		require.NoError(t, err)
		require.NoError(t, l.Record(ctx, "user-1", prev))

		got, err := store.GetLastRequest(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, got.Equal(later))
	})
}
