package presence

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle はハートビートの書き込み抑制を判定するインターフェース。
// プロセスローカルな実装を差し替え可能にしておくことで、複数インスタンス
// 構成時に共有バックエンド実装へ呼び出し側を変えずに移行できる。
type Throttle interface {
	// Allow はこのセッションのハートビートを今ストレージへ書き込んでよいかを返す。
	Allow(sessionID string) bool
}

// ThrottleConfig はセッション別スロットルの設定を保持する。
type ThrottleConfig struct {
	MinInterval     time.Duration // 書き込みを受け付ける最小間隔
	CleanupInterval time.Duration // 遊休エントリのクリーンアップ間隔
}

// DefaultThrottleConfig はデフォルトのスロットル設定を返す。
// 要件: ハートビートの書き込みはセッションあたり10秒に1回まで
func DefaultThrottleConfig() ThrottleConfig {
	return ThrottleConfig{
		MinInterval:     10 * time.Second,
		CleanupInterval: 5 * time.Minute,
	}
}

// sessionLimiter はセッションごとのレートリミッターとアクセス時刻を保持する。
type sessionLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// SessionThrottle はセッションIDをキーにしたトークンバケット型スロットル。
// マップはプロセス寿命のローカル状態であり、正しさの機構ではなく最適化である。
// プロセス再起動や複数インスタンスでマップが分かれても、余分な書き込みが
// 増えるだけで読み取りが誤ることはない。
type SessionThrottle struct {
	config ThrottleConfig

	mu       sync.RWMutex
	limiters map[string]*sessionLimiter

	stopCh chan struct{}
}

// NewSessionThrottle は新しいSessionThrottleを生成する。
// バックグラウンドで遊休エントリのクリーンアップを開始する。
func NewSessionThrottle(config ThrottleConfig) *SessionThrottle {
	st := &SessionThrottle{
		config:   config,
		limiters: make(map[string]*sessionLimiter),
		stopCh:   make(chan struct{}),
	}

	go st.cleanupLoop()

	return st
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (st *SessionThrottle) Stop() {
	close(st.stopCh)
}

// Allow はこのセッションの書き込みを受け付けるかを判定する。
// MinIntervalあたり1回のトークンバケットで、初回は必ず通る。
func (st *SessionThrottle) Allow(sessionID string) bool {
	return st.getOrCreateLimiter(sessionID).Allow()
}

// LimiterCount は現在管理されているリミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (st *SessionThrottle) LimiterCount() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.limiters)
}

// getOrCreateLimiter はセッションのリミッターを取得または作成する。
func (st *SessionThrottle) getOrCreateLimiter(sessionID string) *rate.Limiter {
	st.mu.RLock()
	sl, exists := st.limiters[sessionID]
	st.mu.RUnlock()

	if exists {
		st.mu.Lock()
		sl.lastAccess = time.Now()
		st.mu.Unlock()
		return sl.limiter
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	// ダブルチェック
	if sl, exists := st.limiters[sessionID]; exists {
		sl.lastAccess = time.Now()
		return sl.limiter
	}

	limiter := rate.NewLimiter(rate.Every(st.config.MinInterval), 1)
	st.limiters[sessionID] = &sessionLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}

	return limiter
}

// cleanupLoop はバックグラウンドで遊休エントリを定期的にクリーンアップする。
func (st *SessionThrottle) cleanupLoop() {
	ticker := time.NewTicker(st.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			st.cleanup()
		case <-st.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がCleanupIntervalの2倍を超えたエントリを削除する。
func (st *SessionThrottle) cleanup() {
	ttl := st.config.CleanupInterval * 2

	now := time.Now()

	st.mu.Lock()
	for sessionID, sl := range st.limiters {
		if now.Sub(sl.lastAccess) > ttl {
			delete(st.limiters, sessionID)
		}
	}
	st.mu.Unlock()
}

// compile-time interface check
var _ Throttle = (*SessionThrottle)(nil)
