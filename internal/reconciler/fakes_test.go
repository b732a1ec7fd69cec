package reconciler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/relaykeeper/internal/common"
	"github.com/dmitrijs2005/relaykeeper/internal/logging"
	"github.com/dmitrijs2005/relaykeeper/internal/models"
	"github.com/dmitrijs2005/relaykeeper/internal/proxy"
	"github.com/dmitrijs2005/relaykeeper/internal/store/repositories/subscriptions"
	"github.com/dmitrijs2005/relaykeeper/internal/syncx"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type fakeStore struct {
	mu        sync.Mutex
	keys      map[int64]*models.AccessKey
	subs      map[int64]*subscriptions.ActiveSubscriber
	nextKeyID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		keys: make(map[int64]*models.AccessKey),
		subs: make(map[int64]*subscriptions.ActiveSubscriber),
	}
}

func (s *fakeStore) addActiveKey(userID int64, secret string, expiresAt *time.Time, limit int64) *models.AccessKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.keys {
		if k.UserID == userID {
			k.IsActive = false
		}
	}
	s.nextKeyID++
	key := &models.AccessKey{
		ID:             s.nextKeyID,
		UserID:         userID,
		Secret:         secret,
		IsActive:       true,
		ExpiresAt:      expiresAt,
		DataLimitBytes: limit,
	}
	s.keys[key.ID] = key
	return key
}

func (s *fakeStore) subscribe(userID, platformID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[userID] = &subscriptions.ActiveSubscriber{
		User:         models.User{ID: userID, PlatformID: platformID},
		Subscription: models.Subscription{UserID: userID, IsActive: true},
	}
}

func (s *fakeStore) key(id int64) models.AccessKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.keys[id]
}

func (s *fakeStore) GetActiveKey(_ context.Context, userID int64) (*models.AccessKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.keys {
		if k.UserID == userID && k.IsActive {
			c := *k
			return &c, nil
		}
	}
	return nil, fmt.Errorf("active key for user %d: %w", userID, common.ErrorNotFound)
}

func (s *fakeStore) DeactivateKey(_ context.Context, keyID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k, ok := s.keys[keyID]; ok {
		k.IsActive = false
	}
	return nil
}

func (s *fakeStore) RecordUsage(_ context.Context, keyID int64, usedBytes int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k, ok := s.keys[keyID]; ok && usedBytes > k.UsedBytes {
		k.UsedBytes = usedBytes
	}
	return nil
}

func (s *fakeStore) MarkProvisioned(_ context.Context, keyID int64, provisioned bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k, ok := s.keys[keyID]; ok {
		k.Provisioned = provisioned
	}
	return nil
}

func (s *fakeStore) ClearProvisionedForUser(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.keys {
		if k.UserID == userID {
			k.Provisioned = false
		}
	}
	return nil
}

func (s *fakeStore) ListActiveKeys(_ context.Context) ([]*models.AccessKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.AccessKey
	for _, k := range s.keys {
		if k.IsActive {
			c := *k
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) ListProvisionedUserIDs(_ context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[int64]bool)
	var out []int64
	for _, k := range s.keys {
		if k.Provisioned && !seen[k.UserID] {
			seen[k.UserID] = true
			out = append(out, k.UserID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *fakeStore) ListActiveSubscriptions(_ context.Context) ([]*subscriptions.ActiveSubscriber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*subscriptions.ActiveSubscriber
	for _, sub := range s.subs {
		if sub.Subscription.IsActive {
			c := *sub
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].User.ID < out[j].User.ID })
	return out, nil
}

func (s *fakeStore) SetSubscriptionActive(_ context.Context, userID int64, isActive bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.subs[userID]; ok {
		sub.Subscription.IsActive = isActive
	} else {
		s.subs[userID] = &subscriptions.ActiveSubscriber{
			User:         models.User{ID: userID},
			Subscription: models.Subscription{UserID: userID, IsActive: isActive},
		}
	}
	return nil
}

type fakeProxy struct {
	mu         sync.Mutex
	identities map[string]string
	ops        []string
	attempts   map[string]int
	rejectTags map[string]bool
	transient  map[string]int
	listErr    error
	usage      map[string]proxy.Usage
	health     proxy.Health
}

func newFakeProxy() *fakeProxy {
	return &fakeProxy{
		identities: make(map[string]string),
		attempts:   make(map[string]int),
		rejectTags: make(map[string]bool),
		transient:  make(map[string]int),
		usage:      make(map[string]proxy.Usage),
		health:     proxy.Health{Installed: true, Running: true, Version: "1.8.24"},
	}
}

func (p *fakeProxy) AddIdentity(_ context.Context, secret, tag string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts[tag]++
	if p.transient[tag] > 0 {
		p.transient[tag]--
		return &proxy.Error{Kind: proxy.KindUnreachable, Op: "add", Err: fmt.Errorf("connection refused")}
	}
	if p.rejectTags[tag] {
		return &proxy.Error{Kind: proxy.KindRejected, Op: "add", Err: fmt.Errorf("rejected")}
	}
	p.identities[tag] = secret
	p.ops = append(p.ops, "add:"+tag)
	return nil
}

func (p *fakeProxy) RemoveIdentity(_ context.Context, tag string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts[tag]++
	if p.transient[tag] > 0 {
		p.transient[tag]--
		return &proxy.Error{Kind: proxy.KindUnreachable, Op: "remove", Err: fmt.Errorf("connection refused")}
	}
	delete(p.identities, tag)
	p.ops = append(p.ops, "remove:"+tag)
	return nil
}

func (p *fakeProxy) ListIdentities(_ context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listErr != nil {
		return nil, p.listErr
	}
	tags := make([]string, 0, len(p.identities))
	for tag := range p.identities {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags, nil
}

func (p *fakeProxy) QueryUsage(_ context.Context, tag string) (*proxy.Usage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u := p.usage[tag]
	return &u, nil
}

func (p *fakeProxy) Health(_ context.Context) *proxy.Health {
	p.mu.Lock()
	defer p.mu.Unlock()
	h := p.health
	return &h
}

func (p *fakeProxy) tags() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	tags := make([]string, 0, len(p.identities))
	for tag := range p.identities {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func (p *fakeProxy) opLog() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.ops...)
}

type fakeMembership struct {
	mu      sync.Mutex
	members map[int64]bool
	errIDs  map[int64]bool
}

func newFakeMembership() *fakeMembership {
	return &fakeMembership{members: make(map[int64]bool), errIDs: make(map[int64]bool)}
}

func (m *fakeMembership) IsMember(_ context.Context, platformID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errIDs[platformID] {
		return false, fmt.Errorf("chat api: flood wait")
	}
	return m.members[platformID], nil
}

type testKit struct {
	store      *fakeStore
	proxy      *fakeProxy
	membership *fakeMembership
	engine     *Engine
	dispatcher *Dispatcher
}

func newTestKit() *testKit {
	st := newFakeStore()
	px := newFakeProxy()
	mb := newFakeMembership()
	logger := testLogger()
	d := NewDispatcher(px, st, syncx.NewKeyedMutex(), logger, 4, 2, time.Second)
	e := NewEngine(st, px, mb, d, logger, time.Second)
	return &testKit{store: st, proxy: px, membership: mb, engine: e, dispatcher: d}
}
