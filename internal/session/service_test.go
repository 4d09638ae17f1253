package session

import (
	"context"
	"errors"
	"testing"

	"github.com/haruki/otoba/internal/model"
)

// --- モック定義 ---

type mockSessionFinder struct {
	findFn func(ctx context.Context, id string) (*model.Session, *model.User, error)
	calls  int
}

func (m *mockSessionFinder) FindByIDWithUser(ctx context.Context, id string) (*model.Session, *model.User, error) {
	m.calls++
	if m.findFn != nil {
		return m.findFn(ctx, id)
	}
	return nil, nil, nil
}

type mockUserCreator struct {
	createFn func(ctx context.Context, user *model.User, session *model.Session) error
	created  []*model.User
}

func (m *mockUserCreator) CreateWithSession(ctx context.Context, user *model.User, session *model.Session) error {
	m.created = append(m.created, user)
	if m.createFn != nil {
		return m.createFn(ctx, user, session)
	}
	return nil
}

type mockMetrics struct {
	minted  int
	resumed int
}

func (m *mockMetrics) RecordSessionMinted()  { m.minted++ }
func (m *mockMetrics) RecordSessionResumed() { m.resumed++ }

const validTestToken = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// --- テスト ---

func TestEnsureSession_NoToken_MintsFreshIdentity(t *testing.T) {
	finder := &mockSessionFinder{}
	creator := &mockUserCreator{}
	metrics := &mockMetrics{}
	mgr := NewManager(finder, creator, metrics)

	result, err := mgr.EnsureSession(context.Background(), "")
	if err != nil {
		t.Fatalf("EnsureSession returned error: %v", err)
	}

	if !result.ShouldSetCookie {
		t.Error("トークンなしの場合はShouldSetCookie=trueのはず")
	}
	if result.UserID == "" || result.SessionID == "" {
		t.Errorf("発行済みIDが空: %+v", result)
	}
	if finder.calls != 0 {
		t.Error("形式不正（空）トークンはDB照会せずに新規発行するはず")
	}
	if len(creator.created) != 1 {
		t.Fatalf("created = %d users, want 1", len(creator.created))
	}

	user := creator.created[0]
	if !user.Ephemeral {
		t.Error("新規ユーザーはephemeral=trueのはず")
	}
	if user.Kind != model.UserKindHuman {
		t.Errorf("Kind = %q, want %q", user.Kind, model.UserKindHuman)
	}
	if user.Banned {
		t.Error("新規ユーザーはbanned=falseのはず")
	}
	if metrics.minted != 1 {
		t.Errorf("minted = %d, want 1", metrics.minted)
	}
}

func TestEnsureSession_MalformedToken_MintsWithoutLookup(t *testing.T) {
	finder := &mockSessionFinder{}
	creator := &mockUserCreator{}
	mgr := NewManager(finder, creator, &mockMetrics{})

	result, err := mgr.EnsureSession(context.Background(), "not-a-valid-token")
	if err != nil {
		t.Fatalf("EnsureSession returned error: %v", err)
	}

	if !result.ShouldSetCookie {
		t.Error("形式不正トークンは新規発行になるはず")
	}
	if finder.calls != 0 {
		t.Error("形式不正トークンはバリデーションエラーを伝播させず、照会もしない")
	}
}

func TestEnsureSession_ValidToken_ReturnsExistingIdentity(t *testing.T) {
	finder := &mockSessionFinder{
		findFn: func(ctx context.Context, id string) (*model.Session, *model.User, error) {
			return &model.Session{ID: id, UserID: "u-1"},
				&model.User{ID: "u-1", Ephemeral: true, Kind: model.UserKindHuman},
				nil
		},
	}
	creator := &mockUserCreator{}
	metrics := &mockMetrics{}
	mgr := NewManager(finder, creator, metrics)

	result, err := mgr.EnsureSession(context.Background(), validTestToken)
	if err != nil {
		t.Fatalf("EnsureSession returned error: %v", err)
	}

	if result.ShouldSetCookie {
		t.Error("解決済みトークンはShouldSetCookie=falseのはず")
	}
	if result.UserID != "u-1" || result.SessionID != validTestToken {
		t.Errorf("result = %+v, want u-1 / %s", result, validTestToken)
	}
	if len(creator.created) != 0 {
		t.Error("解決に成功したら新規発行しないはず")
	}
	if metrics.resumed != 1 {
		t.Errorf("resumed = %d, want 1", metrics.resumed)
	}
}

func TestEnsureSession_Idempotent_ForFixedValidToken(t *testing.T) {
	finder := &mockSessionFinder{
		findFn: func(ctx context.Context, id string) (*model.Session, *model.User, error) {
			return &model.Session{ID: id, UserID: "u-1"},
				&model.User{ID: "u-1"},
				nil
		},
	}
	mgr := NewManager(finder, &mockUserCreator{}, &mockMetrics{})

	first, err := mgr.EnsureSession(context.Background(), validTestToken)
	if err != nil {
		t.Fatalf("1回目: %v", err)
	}
	second, err := mgr.EnsureSession(context.Background(), validTestToken)
	if err != nil {
		t.Fatalf("2回目: %v", err)
	}

	if first.UserID != second.UserID || first.SessionID != second.SessionID {
		t.Errorf("固定トークンに対する結果が一致しない: %+v vs %+v", first, second)
	}
	if first.ShouldSetCookie || second.ShouldSetCookie {
		t.Error("どちらの呼び出しもShouldSetCookie=falseのはず")
	}
}

func TestEnsureSession_UnknownToken_MintsFresh(t *testing.T) {
	finder := &mockSessionFinder{} // (nil, nil, nil): セッション不在
	creator := &mockUserCreator{}
	mgr := NewManager(finder, creator, &mockMetrics{})

	result, err := mgr.EnsureSession(context.Background(), validTestToken)
	if err != nil {
		t.Fatalf("EnsureSession returned error: %v", err)
	}

	if !result.ShouldSetCookie {
		t.Error("未知のトークンは新規発行になるはず")
	}
	if result.SessionID == validTestToken {
		t.Error("新規発行のトークンは受信トークンと異なるはず")
	}
}

func TestEnsureSession_BannedUser_TreatedAsUnresolved(t *testing.T) {
	finder := &mockSessionFinder{
		findFn: func(ctx context.Context, id string) (*model.Session, *model.User, error) {
			return &model.Session{ID: id, UserID: "u-banned"},
				&model.User{ID: "u-banned", Banned: true},
				nil
		},
	}
	creator := &mockUserCreator{}
	mgr := NewManager(finder, creator, &mockMetrics{})

	result, err := mgr.EnsureSession(context.Background(), validTestToken)
	if err != nil {
		t.Fatalf("EnsureSession returned error: %v", err)
	}

	if !result.ShouldSetCookie {
		t.Error("BANユーザーのトークンは未解決扱いで新規発行するはず")
	}
	if result.UserID == "u-banned" {
		t.Error("BANユーザーのIDを返してはならない")
	}
}

func TestEnsureSession_LookupError_FailsOpen(t *testing.T) {
	finder := &mockSessionFinder{
		findFn: func(ctx context.Context, id string) (*model.Session, *model.User, error) {
			return nil, nil, errors.New("datastore down")
		},
	}
	creator := &mockUserCreator{}
	mgr := NewManager(finder, creator, &mockMetrics{})

	result, err := mgr.EnsureSession(context.Background(), validTestToken)
	if err != nil {
		t.Fatalf("解決エラーはfail-openで新規発行に吸収されるはず: %v", err)
	}
	if !result.ShouldSetCookie {
		t.Error("解決エラー時は新規発行になるはず")
	}
}

func TestEnsureSession_MintFails_ReturnsError(t *testing.T) {
	creator := &mockUserCreator{
		createFn: func(ctx context.Context, user *model.User, session *model.Session) error {
			return errors.New("datastore down")
		},
	}
	mgr := NewManager(&mockSessionFinder{}, creator, &mockMetrics{})

	_, err := mgr.EnsureSession(context.Background(), "")
	if err == nil {
		t.Fatal("新規発行自体の失敗はエラーとして返すはず")
	}
}
