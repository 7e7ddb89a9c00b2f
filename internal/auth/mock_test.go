package auth

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2"

	"github.com/hitoshi/cricketstats/internal/model"
	"github.com/hitoshi/cricketstats/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn       func(ctx context.Context, id string) (*model.User, error)
	findByProviderFn func(ctx context.Context, provider model.Provider, providerID string) (*model.User, error)
	createFn         func(ctx context.Context, user *model.User) error
	updateProfileFn  func(ctx context.Context, user *model.User) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByProvider(ctx context.Context, provider model.Provider, providerID string) (*model.User, error) {
	if m.findByProviderFn != nil {
		return m.findByProviderFn(ctx, provider, providerID)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, user *model.User) error {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, user)
	}
	return nil
}

type mockSessionRepo struct {
	createFn         func(ctx context.Context, session *model.Session) error
	findByIDFn       func(ctx context.Context, id string) (*model.Session, error)
	deleteByIDFn     func(ctx context.Context, id string) error
	deleteByUserIDFn func(ctx context.Context, userID string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if m.deleteByUserIDFn != nil {
		return m.deleteByUserIDFn(ctx, userID)
	}
	return nil
}

type mockProvider struct {
	name           model.Provider
	authCodeURLFn  func(state string) string
	exchangeFn     func(ctx context.Context, code string) (*oauth2.Token, error)
	fetchProfileFn func(ctx context.Context, token *oauth2.Token) (RawProfile, error)
}

func (m *mockProvider) Name() model.Provider { return m.name }

func (m *mockProvider) AuthCodeURL(state string) string {
	if m.authCodeURLFn != nil {
		return m.authCodeURLFn(state)
	}
	return "https://idp.example.com/authorize?state=" + state
}

func (m *mockProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if m.exchangeFn != nil {
		return m.exchangeFn(ctx, code)
	}
	return &oauth2.Token{AccessToken: "access"}, nil
}

func (m *mockProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (RawProfile, error) {
	if m.fetchProfileFn != nil {
		return m.fetchProfileFn(ctx, token)
	}
	return nil, nil
}

type mockMetrics struct {
	mu        sync.Mutex
	logins    []string
	created   int
	recovered int
}

func (m *mockMetrics) RecordLogin(provider, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins = append(m.logins, provider+":"+outcome)
}

func (m *mockMetrics) ObserveCallbackDuration(string, time.Duration) {}

func (m *mockMetrics) RecordUserCreated(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created++
}

func (m *mockMetrics) RecordDuplicateRecovered(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recovered++
}

// memUserRepo は (provider, provider_id) の一意制約を持つインメモリのユーザーストア。
// hideFirstLookups 回目までの FindByProvider は常に未検出を返し、同時初回ログインの競合を再現する。
type memUserRepo struct {
	mu               sync.Mutex
	byID             map[string]*model.User
	lookups          atomic.Int32
	hideFirstLookups int32
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: make(map[string]*model.User)}
}

func (r *memUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, nil
}

func (r *memUserRepo) FindByProvider(_ context.Context, provider model.Provider, providerID string) (*model.User, error) {
	if r.lookups.Add(1) <= r.hideFirstLookups {
		return nil, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Provider == provider && u.ProviderID == providerID {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Provider == user.Provider && u.ProviderID == user.ProviderID {
			return model.ErrDuplicateOnCreate
		}
	}
	c := *user
	r.byID[user.ID] = &c
	return nil
}

func (r *memUserRepo) UpdateProfile(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[user.ID]; ok {
		u.DisplayName = user.DisplayName
		u.Email = user.Email
		u.AvatarURL = user.AvatarURL
		u.UpdatedAt = user.UpdatedAt
	}
	return nil
}

func (r *memUserRepo) delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}

func (r *memUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// memSessionRepo はインメモリのセッションストア。
type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[string]*model.Session)}
}

func (r *memSessionRepo) Create(_ context.Context, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *s
	r.sessions[s.ID] = &c
	return nil
}

func (r *memSessionRepo) FindByID(_ context.Context, id string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		c := *s
		return &c, nil
	}
	return nil, nil
}

func (r *memSessionRepo) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *memSessionRepo) DeleteByUserID(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
		}
	}
	return nil
}

func (r *memSessionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ repository.UserRepository = (*memUserRepo)(nil)
var _ repository.SessionRepository = (*mockSessionRepo)(nil)
var _ repository.SessionRepository = (*memSessionRepo)(nil)
var _ Provider = (*mockProvider)(nil)
var _ Metrics = (*mockMetrics)(nil)
var _ ResolverMetrics = (*mockMetrics)(nil)

func strPtr(s string) *string { return &s }
