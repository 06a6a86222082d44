package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dkovalev/auction-service/internal/auction"
	"github.com/dkovalev/auction-service/internal/models"
	"github.com/dkovalev/auction-service/internal/repository"

	"github.com/shopspring/decimal"
)

// fakeClock позволяет тестам управлять временем.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// captureNotifier собирает отправленные уведомления.
type captureNotifier struct {
	mu     sync.Mutex
	events []models.Notification
}

func (n *captureNotifier) Notify(_ context.Context, event models.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *captureNotifier) all() []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.Notification, len(n.events))
	copy(out, n.events)
	return out
}

func (n *captureNotifier) byKind(kind models.NotificationKind) []models.Notification {
	var out []models.Notification
	for _, e := range n.all() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// memStore - общее хранилище фейковых репозиториев, имитирует базу данных.
type memStore struct {
	mu           sync.Mutex
	seq          int
	users        map[string]*models.User
	tenders      map[string]*models.Tender
	bids         []models.Bid
	participants []models.TenderParticipant
	access       map[string]map[string]bool // tenderID -> supplierID
}

func newMemStore() *memStore {
	return &memStore{
		users:   make(map[string]*models.User),
		tenders: make(map[string]*models.Tender),
		access:  make(map[string]map[string]bool),
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memStore) addUser(username string, role models.UserRole) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := &models.User{
		ID:       s.nextID("u"),
		Username: username,
		Role:     role,
	}
	if role == models.SupplierRole {
		user.OrgName = "ООО Тест"
		user.INN = "1234567890"
		user.OGRN = "1234567890123"
		user.Phone = "+79990000000"
		user.ContactName = "Иванов Иван"
	}
	s.users[user.ID] = user
	return user
}

func (s *memStore) addTender(t models.Tender) *models.Tender {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = s.nextID("t")
	}
	if t.CurrentPrice.IsZero() {
		t.CurrentPrice = t.StartPrice
	}
	stored := t
	s.tenders[stored.ID] = &stored
	return &stored
}

func (s *memStore) addParticipant(tenderID, supplierID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants = append(s.participants, models.TenderParticipant{
		ID:         s.nextID("p"),
		TenderID:   tenderID,
		SupplierID: supplierID,
		JoinedAt:   at,
	})
}

func (s *memStore) addBid(tenderID, supplierID string, amount int64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bids = append(s.bids, models.Bid{
		ID:         s.nextID("b"),
		TenderID:   tenderID,
		SupplierID: supplierID,
		Amount:     decimal.NewFromInt(amount),
		CreatedAt:  at,
	})
}

func (s *memStore) grantAccess(tenderID, supplierID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.access[tenderID] == nil {
		s.access[tenderID] = make(map[string]bool)
	}
	s.access[tenderID][supplierID] = true
}

func (s *memStore) tenderCopy(id string) (*models.Tender, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenders[id]
	if !ok {
		return nil, false
	}
	cp := *t
	return &cp, true
}

// memUserRepo реализует repository.UserRepository поверх memStore.
type memUserRepo struct{ store *memStore }

func (r *memUserRepo) CreateUser(_ context.Context, username string, role models.UserRole) (*models.User, error) {
	return r.store.addUser(username, role), nil
}

func (r *memUserRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, u := range r.store.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNoRows
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if u, ok := r.store.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repository.ErrNoRows
}

func (r *memUserRepo) UpdateSupplierProfile(_ context.Context, req models.SupplierProfileRequest) (*models.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, u := range r.store.users {
		if u.Username == req.Username {
			u.OrgName = req.OrgName
			u.INN = req.INN
			u.OGRN = req.OGRN
			u.Phone = req.Phone
			u.ContactName = req.ContactName
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNoRows
}

func (r *memUserRepo) SetBanned(_ context.Context, id string, banned bool) (*models.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if u, ok := r.store.users[id]; ok {
		u.Banned = banned
		cp := *u
		return &cp, nil
	}
	return nil, repository.ErrNoRows
}

func (r *memUserRepo) ListUsers(_ context.Context, limit, offset int) ([]models.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []models.User
	for _, u := range r.store.users {
		out = append(out, *u)
	}
	return out, nil
}

// memTenderRepo реализует repository.TenderRepository поверх memStore.
type memTenderRepo struct{ store *memStore }

func (r *memTenderRepo) CreateTender(_ context.Context, req models.TenderRequest, organizerID string) (*models.Tender, error) {
	return r.store.addTender(models.Tender{
		Title:          req.Title,
		Description:    req.Description,
		StartPrice:     req.StartPrice,
		CurrentPrice:   req.StartPrice,
		MinBidDecrease: req.MinBidDecrease,
		StartAt:        req.StartAt,
		Status:         models.DraftTender,
		ConditionsPath: req.ConditionsPath,
		OrganizerID:    organizerID,
	}), nil
}

func (r *memTenderRepo) GetTender(_ context.Context, tenderID string) (*models.Tender, error) {
	if t, ok := r.store.tenderCopy(tenderID); ok {
		return t, nil
	}
	return nil, repository.ErrNoRows
}

func (r *memTenderRepo) GetOrganizerTenders(_ context.Context, organizerID string, limit, offset int) ([]models.Tender, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []models.Tender
	for _, t := range r.store.tenders {
		if t.OrganizerID == organizerID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *memTenderRepo) ListByStatus(_ context.Context, status models.TenderStatus) ([]models.Tender, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []models.Tender
	for _, t := range r.store.tenders {
		if t.Status == status {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *memTenderRepo) ListAccessible(_ context.Context, supplierID string) ([]models.Tender, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []models.Tender
	for _, t := range r.store.tenders {
		open := t.Status == models.ActivePendingTender || t.Status == models.ActiveTender
		if open && r.store.access[t.ID][supplierID] {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *memTenderRepo) UpdateStatus(_ context.Context, tenderID string, status models.TenderStatus) (*models.Tender, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tenders[tenderID]
	if !ok {
		return nil, repository.ErrNoRows
	}
	t.Status = status
	cp := *t
	return &cp, nil
}

func (r *memTenderRepo) ActivateDue(_ context.Context, now time.Time) ([]models.Tender, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []models.Tender
	for _, t := range r.store.tenders {
		if t.Status == models.ActivePendingTender && !t.StartAt.After(now) {
			t.Status = models.ActiveTender
			t.CurrentPrice = t.StartPrice
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *memTenderRepo) CloseIfActive(_ context.Context, tenderID string, cutoff time.Time) (*models.Tender, bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tenders[tenderID]
	if !ok {
		return nil, false, nil
	}
	if t.Status != models.ActiveTender {
		return nil, false, nil
	}
	if t.LastBidAt != nil && t.LastBidAt.After(cutoff) {
		return nil, false, nil
	}
	t.Status = models.ClosedTender
	cp := *t
	return &cp, true, nil
}

func (r *memTenderRepo) ListStaleActive(_ context.Context, cutoff time.Time) ([]models.Tender, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []models.Tender
	for _, t := range r.store.tenders {
		if t.Status != models.ActiveTender {
			continue
		}
		anchor := t.StartAt
		if t.LastBidAt != nil {
			anchor = *t.LastBidAt
		}
		if !anchor.After(cutoff) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *memTenderRepo) GrantAccess(_ context.Context, tenderID, supplierID string) (*models.TenderAccess, error) {
	r.store.grantAccess(tenderID, supplierID)
	return &models.TenderAccess{TenderID: tenderID, SupplierID: supplierID}, nil
}

func (r *memTenderRepo) RevokeAccess(_ context.Context, tenderID, supplierID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.access[tenderID], supplierID)
	return nil
}

func (r *memTenderRepo) HasAccess(_ context.Context, tenderID, supplierID string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.access[tenderID][supplierID], nil
}

// memBidRepo реализует repository.BidRepository поверх memStore. PlaceBid
// повторяет транзакционную семантику: проверка и запись под одной блокировкой.
type memBidRepo struct{ store *memStore }

func (r *memBidRepo) PlaceBid(_ context.Context, tenderID, supplierID string, amount decimal.Decimal, confirmed bool, now time.Time) (*models.Bid, *models.Tender, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	t, ok := r.store.tenders[tenderID]
	if !ok {
		return nil, nil, repository.ErrNoRows
	}
	if err := auction.ValidateBid(t, amount, confirmed); err != nil {
		return nil, nil, err
	}

	bid := models.Bid{
		ID:         r.store.nextID("b"),
		TenderID:   tenderID,
		SupplierID: supplierID,
		Amount:     amount,
		CreatedAt:  now,
	}
	r.store.bids = append(r.store.bids, bid)
	t.CurrentPrice = amount
	at := now
	t.LastBidAt = &at

	tcp := *t
	return &bid, &tcp, nil
}

func (r *memBidRepo) ListTenderBids(_ context.Context, tenderID string) ([]models.Bid, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []models.Bid
	for _, b := range r.store.bids {
		if b.TenderID == tenderID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memBidRepo) ListSupplierBids(_ context.Context, supplierID string, limit, offset int) ([]models.Bid, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []models.Bid
	for _, b := range r.store.bids {
		if b.SupplierID == supplierID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memBidRepo) AddParticipant(_ context.Context, tenderID, supplierID string, now time.Time) (*models.TenderParticipant, error) {
	r.store.addParticipant(tenderID, supplierID, now)
	return &models.TenderParticipant{TenderID: tenderID, SupplierID: supplierID, JoinedAt: now}, nil
}

func (r *memBidRepo) ListParticipants(_ context.Context, tenderID string) ([]models.TenderParticipant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []models.TenderParticipant
	for _, p := range r.store.participants {
		if p.TenderID == tenderID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memBidRepo) IsParticipant(_ context.Context, tenderID, supplierID string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, p := range r.store.participants {
		if p.TenderID == tenderID && p.SupplierID == supplierID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memBidRepo) HasOpenParticipation(_ context.Context, supplierID string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, p := range r.store.participants {
		if p.SupplierID != supplierID {
			continue
		}
		t, ok := r.store.tenders[p.TenderID]
		if ok && (t.Status == models.ActivePendingTender || t.Status == models.ActiveTender) {
			return true, nil
		}
	}
	return false, nil
}
