package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"order_manager/internal/models"
	"order_manager/internal/repository"
	"order_manager/internal/workflow"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type fakeOrders struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*models.Order
	updates map[uuid.UUID]map[string]interface{}
	failGet bool
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{
		byID:    map[uuid.UUID]*models.Order{},
		updates: map[uuid.UUID]map[string]interface{}{},
	}
}

func (f *fakeOrders) put(o *models.Order) *models.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	cp := *o
	f.byID[o.ID] = &cp
	return o
}

func (f *fakeOrders) Create(_ context.Context, o *models.Order) error {
	f.put(o)
	return nil
}

func (f *fakeOrders) CreateBatch(ctx context.Context, orders []models.Order) error {
	for i := range orders {
		f.put(&orders[i])
	}
	return nil
}

func (f *fakeOrders) GetByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byID[id]
	if !ok || f.failGet {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) Find(_ context.Context, filter clause.Expression) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for _, o := range f.byID {
		if filter == nil || filter.(workflow.Expr).Match(o) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrders) Count(ctx context.Context, filter clause.Expression) (int64, error) {
	orders, err := f.Find(ctx, filter)
	return int64(len(orders)), err
}

func (f *fakeOrders) UpdateFields(_ context.Context, id uuid.UUID, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	f.updates[id] = updates
	return nil
}

func (f *fakeOrders) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeNotifications struct {
	mu    sync.Mutex
	items []models.Notification
	fail  error
}

func (f *fakeNotifications) Create(_ context.Context, n *models.Notification) error {
	if f.fail != nil {
		return f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	f.items = append(f.items, *n)
	return nil
}

func (f *fakeNotifications) visible(userIDs []uuid.UUID) []int {
	var idx []int
	for i, n := range f.items {
		if userIDs == nil {
			idx = append(idx, i)
			continue
		}
		for _, id := range userIDs {
			if (n.UserID != nil && *n.UserID == id) || (n.AssignedTo != nil && *n.AssignedTo == id) {
				idx = append(idx, i)
				break
			}
		}
	}
	return idx
}

func (f *fakeNotifications) List(_ context.Context, userIDs []uuid.UUID, limit int) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Notification
	for _, i := range f.visible(userIDs) {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, f.items[i])
	}
	return out, nil
}

func (f *fakeNotifications) MarkRead(_ context.Context, userIDs []uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, i := range f.visible(userIDs) {
		if !f.items[i].IsRead {
			f.items[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (f *fakeNotifications) Clear(_ context.Context, userIDs []uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	drop := map[int]bool{}
	for _, i := range f.visible(userIDs) {
		drop[i] = true
	}
	var kept []models.Notification
	for i, n := range f.items {
		if !drop[i] {
			kept = append(kept, n)
		}
	}
	f.items = kept
	return int64(len(drop)), nil
}

type fakeUsers struct {
	users map[uuid.UUID]*models.User
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{users: map[uuid.UUID]*models.User{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) GetAll(_ context.Context) ([]models.User, error) {
	var out []models.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUsers) TeamMemberIDs(_ context.Context, leaderID uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for _, u := range f.users {
		if u.AssignedToLeader != nil && *u.AssignedToLeader == leaderID {
			out = append(out, u.ID)
		}
	}
	return out, nil
}

// fakeStore runs transactions without rollback; tests that need a failed
// write check that nothing was published instead.
type fakeStore struct {
	orders        *fakeOrders
	notifications *fakeNotifications
	users         *fakeUsers
}

func (s *fakeStore) Orders() repository.OrderRepository               { return s.orders }
func (s *fakeStore) Notifications() repository.NotificationRepository { return s.notifications }
func (s *fakeStore) Users() repository.UserRepository                 { return s.users }

func (s *fakeStore) Transaction(_ context.Context, fn func(tx repository.Store) error) error {
	return fn(s)
}

type emitted struct {
	Rooms []string
	Event string
	Data  json.RawMessage
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []emitted
	fail   error
}

func (r *recordingEmitter) Emit(_ context.Context, rooms []string, event string, payload interface{}) error {
	if r.fail != nil {
		return r.fail
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, emitted{Rooms: rooms, Event: event, Data: data})
	return nil
}

func (r *recordingEmitter) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Event
	}
	return out
}

type recordingEmails struct {
	mu        sync.Mutex
	approvals []string
	dispatch  []string
}

func (r *recordingEmails) SendApproval(_ context.Context, o *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.approvals = append(r.approvals, o.OrderID)
	return nil
}

func (r *recordingEmails) SendDispatchUpdate(_ context.Context, o *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatch = append(r.dispatch, o.OrderID)
	return errors.New("smtp down")
}

type fixedIDs struct{ n int }

func (f *fixedIDs) Next(context.Context) (string, error) {
	f.n++
	return fmt.Sprintf("PMTO%04d", f.n), nil
}

var fixedNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

type harness struct {
	store   *fakeStore
	emitter *recordingEmitter
	emails  *recordingEmails
	svc     OrderService
	admin   *models.User
	sales   *models.User
	member  *models.User
	other   *models.User
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	admin := &models.User{ID: uuid.New(), Username: "admin", Role: models.RoleAdmin, IsActive: true}
	sales := &models.User{ID: uuid.New(), Username: "sales", Role: models.RoleSales, IsActive: true}
	member := &models.User{ID: uuid.New(), Username: "member", Role: models.RoleSales, IsActive: true, AssignedToLeader: &sales.ID}
	other := &models.User{ID: uuid.New(), Username: "other", Role: models.RoleSales, IsActive: true}

	store := &fakeStore{
		orders:        newFakeOrders(),
		notifications: &fakeNotifications{},
		users:         newFakeUsers(admin, sales, member, other),
	}
	emitter := &recordingEmitter{}
	emails := &recordingEmails{}
	log := zap.NewNop()

	svc := NewOrderService(
		store,
		NewScoper(store.users),
		&fixedIDs{},
		emails,
		NewFanout(emitter, nil, log),
		log,
		WithClock(func() time.Time { return fixedNow }),
		WithRunner(func(f func()) { f() }),
	)
	return &harness{
		store:   store,
		emitter: emitter,
		emails:  emails,
		svc:     svc,
		admin:   admin,
		sales:   sales,
		member:  member,
		other:   other,
	}
}

func raw(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}
