package presence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/haruki/otoba/internal/model"
)

// --- モック定義 ---

type mockPresenceToucher struct {
	touchFn func(ctx context.Context, sessionID string, at time.Time) (string, error)
	calls   int
}

func (m *mockPresenceToucher) Touch(ctx context.Context, sessionID string, at time.Time) (string, error) {
	m.calls++
	if m.touchFn != nil {
		return m.touchFn(ctx, sessionID, at)
	}
	return "u-1", nil
}

type mockUserToucher struct {
	touchFn func(ctx context.Context, userID string, at time.Time) error
	calls   int
}

func (m *mockUserToucher) TouchLastSeen(ctx context.Context, userID string, at time.Time) error {
	m.calls++
	if m.touchFn != nil {
		return m.touchFn(ctx, userID, at)
	}
	return nil
}

// allowAll / denyAll は固定応答のスロットル。
type staticThrottle struct{ allow bool }

func (s staticThrottle) Allow(sessionID string) bool { return s.allow }

type mockHeartbeatMetrics struct {
	results []string
}

func (m *mockHeartbeatMetrics) RecordHeartbeat(result string) {
	m.results = append(m.results, result)
}

// --- テスト ---

func TestRecordHeartbeat_UpdatesPresenceAndUser(t *testing.T) {
	presence := &mockPresenceToucher{}
	users := &mockUserToucher{}
	metrics := &mockHeartbeatMetrics{}
	tracker := NewTracker(presence, users, staticThrottle{allow: true}, metrics)

	result, err := tracker.RecordHeartbeat(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("RecordHeartbeat returned error: %v", err)
	}

	if !result.OK || result.Throttled {
		t.Errorf("result = %+v, want {OK:true Throttled:false}", result)
	}
	if presence.calls != 1 {
		t.Errorf("presence.Touch calls = %d, want 1", presence.calls)
	}
	if users.calls != 1 {
		t.Errorf("users.TouchLastSeen calls = %d, want 1", users.calls)
	}
	if len(metrics.results) != 1 || metrics.results[0] != "ok" {
		t.Errorf("metrics = %v, want [ok]", metrics.results)
	}
}

func TestRecordHeartbeat_Throttled_NoStorageWrite(t *testing.T) {
	presence := &mockPresenceToucher{}
	users := &mockUserToucher{}
	tracker := NewTracker(presence, users, staticThrottle{allow: false}, &mockHeartbeatMetrics{})

	result, err := tracker.RecordHeartbeat(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("RecordHeartbeat returned error: %v", err)
	}

	if !result.OK || !result.Throttled {
		t.Errorf("result = %+v, want {OK:true Throttled:true}", result)
	}
	if presence.calls != 0 || users.calls != 0 {
		t.Error("スロットル時はストレージ書き込みを一切行わないはず")
	}
}

func TestRecordHeartbeat_TwoCallsWithinWindow_SecondThrottled(t *testing.T) {
	presence := &mockPresenceToucher{}
	users := &mockUserToucher{}
	throttle := newTestThrottle(10 * time.Second)
	defer throttle.Stop()
	tracker := NewTracker(presence, users, throttle, &mockHeartbeatMetrics{})

	first, err := tracker.RecordHeartbeat(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("1回目: %v", err)
	}
	if first.Throttled {
		t.Error("1回目はスロットルされないはず")
	}

	second, err := tracker.RecordHeartbeat(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("2回目: %v", err)
	}
	if !second.Throttled {
		t.Error("窓内の2回目はスロットルされるはず")
	}
	if presence.calls != 1 {
		t.Errorf("presence.Touch calls = %d, want 1（2回目は書き込みなし）", presence.calls)
	}
}

func TestRecordHeartbeat_PresenceGone_ReturnsNotFound(t *testing.T) {
	presence := &mockPresenceToucher{
		touchFn: func(ctx context.Context, sessionID string, at time.Time) (string, error) {
			return "", nil // 行が存在しない（並行回収済み）
		},
	}
	users := &mockUserToucher{}
	tracker := NewTracker(presence, users, staticThrottle{allow: true}, &mockHeartbeatMetrics{})

	_, err := tracker.RecordHeartbeat(context.Background(), "s-gone")
	if err == nil {
		t.Fatal("プレゼンス行が無い場合はNotFoundを返すはず")
	}
	if !model.IsNotFound(err) {
		t.Errorf("IsNotFound(err) = false, err = %v", err)
	}
	if users.calls != 0 {
		t.Error("プレゼンス更新に失敗したらユーザー更新へ進まないはず")
	}
}

func TestRecordHeartbeat_UserTouchFailure_SwallowedAsSuccess(t *testing.T) {
	presence := &mockPresenceToucher{}
	users := &mockUserToucher{
		touchFn: func(ctx context.Context, userID string, at time.Time) error {
			return errors.New("datastore down")
		},
	}
	tracker := NewTracker(presence, users, staticThrottle{allow: true}, &mockHeartbeatMetrics{})

	result, err := tracker.RecordHeartbeat(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("副次書き込みの失敗は握りつぶされるはず: %v", err)
	}
	if !result.OK || result.Throttled {
		t.Errorf("result = %+v, want {OK:true Throttled:false}", result)
	}
}

func TestRecordHeartbeat_PresenceError_Propagates(t *testing.T) {
	presence := &mockPresenceToucher{
		touchFn: func(ctx context.Context, sessionID string, at time.Time) (string, error) {
			return "", errors.New("datastore down")
		},
	}
	tracker := NewTracker(presence, &mockUserToucher{}, staticThrottle{allow: true}, &mockHeartbeatMetrics{})

	_, err := tracker.RecordHeartbeat(context.Background(), "s-1")
	if err == nil {
		t.Fatal("プレゼンス更新の内部エラーは伝播するはず")
	}
	if model.IsNotFound(err) {
		t.Error("内部エラーをNotFoundに変換してはならない")
	}
}
