// Package servicetest provides in-memory repositories with the same conditional
// update semantics as the Mongo stores, for service and handler tests.
package servicetest

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/avvvet/numbet-services/internal/comm"
	"github.com/avvvet/numbet-services/internal/gamesvc/models"
	"github.com/avvvet/numbet-services/internal/gamesvc/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Users struct {
	mu   sync.Mutex
	docs map[primitive.ObjectID]models.User

	// FailApply makes ApplySettlement fail for the given users.
	FailApply map[primitive.ObjectID]error
}

func NewUsers() *Users {
	return &Users{docs: map[primitive.ObjectID]models.User{}, FailApply: map[primitive.ObjectID]error{}}
}

func (r *Users) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.docs {
		if d.Phone == u.Phone || d.Username == u.Username || d.Email == u.Email {
			return store.ErrDuplicate
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	r.docs[u.ID] = *u
	return nil
}

// Add stores a user with the given balance and returns it.
func (r *Users) Add(phone string, balance int64) *models.User {
	u := &models.User{
		ID:       primitive.NewObjectID(),
		Username: "user_" + strings.TrimPrefix(phone, "+"),
		Email:    strings.TrimPrefix(phone, "+") + "@example.com",
		Name:     "Player " + phone,
		Phone:    phone,
		Balance:  balance,
	}
	r.mu.Lock()
	r.docs[u.ID] = *u
	r.mu.Unlock()
	return u
}

func (r *Users) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (r *Users) GetByPhone(_ context.Context, phone string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.docs {
		if u.Phone == phone {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *Users) SetPassword(_ context.Context, id primitive.ObjectID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.docs[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Password = hash
	r.docs[id] = u
	return nil
}

func (r *Users) Debit(_ context.Context, id primitive.ObjectID, amount int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if u.Balance < amount {
		return nil, store.ErrInsufficientBalance
	}
	u.Balance -= amount
	r.docs[id] = u
	return &u, nil
}

func (r *Users) Credit(_ context.Context, id primitive.ObjectID, amount int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	u.Balance += amount
	r.docs[id] = u
	return &u, nil
}

func (r *Users) ApplySettlement(_ context.Context, id primitive.ObjectID, winAmount int64, won bool) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.FailApply[id]; err != nil {
		return nil, err
	}
	u, ok := r.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	u.Balance += winAmount
	u.TotalBets++
	if won {
		u.TotalWins++
	}
	r.docs[id] = u
	return &u, nil
}

type Games struct {
	mu   sync.Mutex
	docs map[string]models.Game
}

func NewGames() *Games {
	return &Games{docs: map[string]models.Game{}}
}

func cloneGame(g models.Game) *models.Game {
	g.WinningNumbers = append([]*int(nil), g.WinningNumbers...)
	g.Multipliers = append([]string(nil), g.Multipliers...)
	if g.DrawnAt != nil {
		drawn := make(map[string]time.Time, len(g.DrawnAt))
		for k, v := range g.DrawnAt {
			drawn[k] = v
		}
		g.DrawnAt = drawn
	}
	return &g
}

func (r *Games) Create(_ context.Context, g *models.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[g.GameID]; ok {
		return store.ErrDuplicate
	}
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	r.docs[g.GameID] = *cloneGame(*g)
	return nil
}

func (r *Games) GetByGameID(_ context.Context, gameID string) (*models.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.docs[gameID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneGame(g), nil
}

func (r *Games) sorted() []models.Game {
	out := make([]models.Game, 0, len(r.docs))
	for _, g := range r.docs {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *Games) Latest(_ context.Context) (*models.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.sorted()
	if len(all) == 0 {
		return nil, store.ErrNotFound
	}
	return cloneGame(all[len(all)-1]), nil
}

func (r *Games) List(_ context.Context) ([]*models.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Game{}
	for _, g := range r.sorted() {
		out = append(out, cloneGame(g))
	}
	return out, nil
}

func (r *Games) ListRecent(_ context.Context, limit int64) ([]*models.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.sorted()
	out := []*models.Game{}
	for i := len(all) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		out = append(out, cloneGame(all[i]))
	}
	return out, nil
}

func (r *Games) SetWinningNumber(_ context.Context, gameID string, slot, number int, multiplier string, at time.Time) (*models.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.docs[gameID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if _, set := g.SlotNumber(slot); set {
		return nil, store.ErrSlotTaken
	}
	g = *cloneGame(g)
	for len(g.WinningNumbers) < slot {
		g.WinningNumbers = append(g.WinningNumbers, nil)
	}
	for len(g.Multipliers) < slot {
		g.Multipliers = append(g.Multipliers, "")
	}
	n := number
	g.WinningNumbers[slot-1] = &n
	g.Multipliers[slot-1] = multiplier
	if g.DrawnAt == nil {
		g.DrawnAt = map[string]time.Time{}
	}
	g.DrawnAt[strconv.Itoa(slot)] = at
	r.docs[gameID] = g
	return cloneGame(g), nil
}

func (r *Games) SetMultiplier(_ context.Context, gameID string, slot int, multiplier string) (*models.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.docs[gameID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if g.SlotMultiplier(slot) == "" {
		g = *cloneGame(g)
		for len(g.Multipliers) < slot {
			g.Multipliers = append(g.Multipliers, "")
		}
		g.Multipliers[slot-1] = multiplier
		r.docs[gameID] = g
	}
	return cloneGame(g), nil
}

func (r *Games) byID(id primitive.ObjectID) (models.Game, bool) {
	for _, g := range r.docs {
		if g.ID == id {
			return g, true
		}
	}
	return models.Game{}, false
}

func (r *Games) UpdateAccountDetails(_ context.Context, id primitive.ObjectID, account, ifsc, accountNumber string) (*models.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.byID(id)
	if !ok {
		return nil, store.ErrNotFound
	}
	acc, _ := g.Account(account)
	acc.IFSCCode = ifsc
	acc.AccountNumber = accountNumber
	r.docs[g.GameID] = g
	return cloneGame(g), nil
}

func (r *Games) UpdateAccountQR(_ context.Context, id primitive.ObjectID, account, qrImage string) (*models.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.byID(id)
	if !ok {
		return nil, store.ErrNotFound
	}
	acc, _ := g.Account(account)
	acc.QRImage = qrImage
	r.docs[g.GameID] = g
	return cloneGame(g), nil
}

type Bets struct {
	mu   sync.Mutex
	docs []models.Bet

	// FailCreate, when set, is returned by Create.
	FailCreate error
	// FailSettle makes Settle fail, leaving the bet pending, for bets of the given users.
	FailSettle map[primitive.ObjectID]error
}

func NewBets() *Bets {
	return &Bets{FailSettle: map[primitive.ObjectID]error{}}
}

func (r *Bets) Create(_ context.Context, b *models.Bet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailCreate != nil {
		return r.FailCreate
	}
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	r.docs = append(r.docs, *b)
	return nil
}

func (r *Bets) List(_ context.Context, userID *primitive.ObjectID) ([]*models.Bet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Bet{}
	for _, b := range r.docs {
		if userID == nil || b.UserID == *userID {
			b := b
			out = append(out, &b)
		}
	}
	return out, nil
}

func (r *Bets) ListPending(_ context.Context, gameID string, slot int) ([]*models.Bet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Bet{}
	for _, b := range r.docs {
		if b.GameID == gameID && b.SlotNumber == slot && b.Status == models.BetPending {
			b := b
			out = append(out, &b)
		}
	}
	return out, nil
}

func (r *Bets) Settle(_ context.Context, id primitive.ObjectID, status models.BetStatus, winningNumber int, winAmount int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.docs {
		if r.docs[i].ID != id {
			continue
		}
		if r.docs[i].Status != models.BetPending {
			return store.ErrNotPending
		}
		if err := r.FailSettle[r.docs[i].UserID]; err != nil {
			return err
		}
		n := winningNumber
		r.docs[i].Status = status
		r.docs[i].WinningNumber = &n
		r.docs[i].WinAmount = winAmount
		r.docs[i].SettledAt = &at
		r.docs[i].Credited = false
		return nil
	}
	return store.ErrNotPending
}

func (r *Bets) ListUncredited(_ context.Context, gameID string, slot int, settledBefore time.Time) ([]*models.Bet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Bet{}
	for _, b := range r.docs {
		if b.GameID != gameID || b.SlotNumber != slot || b.Status == models.BetPending || b.Credited {
			continue
		}
		if b.SettledAt == nil || b.SettledAt.After(settledBefore) {
			continue
		}
		b := b
		out = append(out, &b)
	}
	return out, nil
}

func (r *Bets) MarkCredited(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.docs {
		if r.docs[i].ID != id {
			continue
		}
		if r.docs[i].Status == models.BetPending || r.docs[i].Credited {
			return store.ErrAlreadyCredited
		}
		r.docs[i].Credited = true
		return nil
	}
	return store.ErrAlreadyCredited
}

// Get returns the stored copy of a bet.
func (r *Bets) Get(id primitive.ObjectID) (models.Bet, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.docs {
		if b.ID == id {
			return b, true
		}
	}
	return models.Bet{}, false
}

type Deposits struct {
	mu   sync.Mutex
	docs map[primitive.ObjectID]models.Deposit
}

func NewDeposits() *Deposits {
	return &Deposits{docs: map[primitive.ObjectID]models.Deposit{}}
}

func (r *Deposits) Create(_ context.Context, d *models.Deposit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.ID.IsZero() {
		d.ID = primitive.NewObjectID()
	}
	r.docs[d.ID] = *d
	return nil
}

func (r *Deposits) GetByID(_ context.Context, id primitive.ObjectID) (*models.Deposit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &d, nil
}

func (r *Deposits) ListByStatus(_ context.Context, status models.FundsStatus) ([]*models.Deposit, error) {
	return r.filter(func(d models.Deposit) bool { return d.Status == status }), nil
}

func (r *Deposits) ListByUser(_ context.Context, userID primitive.ObjectID) ([]*models.Deposit, error) {
	return r.filter(func(d models.Deposit) bool { return d.UserID == userID }), nil
}

func (r *Deposits) filter(keep func(models.Deposit) bool) []*models.Deposit {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Deposit{}
	for _, d := range r.docs {
		if keep(d) {
			d := d
			out = append(out, &d)
		}
	}
	return out
}

func (r *Deposits) Transition(_ context.Context, id primitive.ObjectID, to models.FundsStatus, at time.Time) (*models.Deposit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if d.Status != models.FundsPending {
		return nil, store.ErrNotPending
	}
	d.Status = to
	d.UpdatedAt = at
	if to == models.FundsApproved {
		d.ApprovedAt = &at
	} else {
		d.RejectedAt = &at
	}
	r.docs[id] = d
	return &d, nil
}

type Withdrawals struct {
	mu   sync.Mutex
	docs map[primitive.ObjectID]models.Withdrawal

	// FailCreate, when set, is returned by Create.
	FailCreate error
}

func NewWithdrawals() *Withdrawals {
	return &Withdrawals{docs: map[primitive.ObjectID]models.Withdrawal{}}
}

func (r *Withdrawals) Create(_ context.Context, w *models.Withdrawal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailCreate != nil {
		return r.FailCreate
	}
	if w.ID.IsZero() {
		w.ID = primitive.NewObjectID()
	}
	r.docs[w.ID] = *w
	return nil
}

func (r *Withdrawals) GetByID(_ context.Context, id primitive.ObjectID) (*models.Withdrawal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &w, nil
}

func (r *Withdrawals) ListByStatus(_ context.Context, status models.FundsStatus) ([]*models.Withdrawal, error) {
	return r.filter(func(w models.Withdrawal) bool { return w.Status == status }), nil
}

func (r *Withdrawals) ListByUser(_ context.Context, userID primitive.ObjectID) ([]*models.Withdrawal, error) {
	return r.filter(func(w models.Withdrawal) bool { return w.UserID == userID }), nil
}

func (r *Withdrawals) filter(keep func(models.Withdrawal) bool) []*models.Withdrawal {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Withdrawal{}
	for _, w := range r.docs {
		if keep(w) {
			w := w
			out = append(out, &w)
		}
	}
	return out
}

func (r *Withdrawals) Transition(_ context.Context, id primitive.ObjectID, to models.FundsStatus, at time.Time) (*models.Withdrawal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if w.Status != models.FundsPending {
		return nil, store.ErrNotPending
	}
	w.Status = to
	w.UpdatedAt = at
	if to == models.FundsApproved {
		w.ApprovedAt = &at
	} else {
		w.RejectedAt = &at
	}
	r.docs[id] = w
	return &w, nil
}

type Admins struct {
	mu   sync.Mutex
	docs map[string]models.Admin
}

func NewAdmins() *Admins {
	return &Admins{docs: map[string]models.Admin{}}
}

func (r *Admins) GetByEmail(_ context.Context, email string) (*models.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.docs[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (r *Admins) Upsert(_ context.Context, a *models.Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.docs[a.Email]
	if ok {
		prev.Password = a.Password
		prev.Role = a.Role
		r.docs[a.Email] = prev
		return nil
	}
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	r.docs[a.Email] = *a
	return nil
}

type OTPs struct {
	mu   sync.Mutex
	docs map[string]models.OTP
}

func NewOTPs() *OTPs {
	return &OTPs{docs: map[string]models.OTP{}}
}

func (r *OTPs) Save(_ context.Context, o *models.OTP) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[o.Key] = *o
	return nil
}

func (r *OTPs) Get(_ context.Context, key string) (*models.OTP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.docs[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &o, nil
}

func (r *OTPs) IncrementAttempts(_ context.Context, key string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.docs[key]
	if !ok {
		return 0, store.ErrNotFound
	}
	o.Attempts++
	r.docs[key] = o
	return o.Attempts, nil
}

func (r *OTPs) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, key)
	return nil
}

// Tx runs work directly. With NonAtomic set it reports itself as non-transactional,
// so services take their compensating paths.
type Tx struct {
	NonAtomic bool
}

func (t *Tx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (t *Tx) Atomic() bool { return !t.NonAtomic }

// Notifier records published events.
type Notifier struct {
	mu     sync.Mutex
	QR     []comm.QRData
	QROnly []comm.QROnly
	Drawn  []comm.NumWon
}

func (n *Notifier) QRUpdated(d comm.QRData) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.QR = append(n.QR, d)
}

func (n *Notifier) QROnlyUpdated(d comm.QROnly) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.QROnly = append(n.QROnly, d)
}

func (n *Notifier) NumberDrawn(d comm.NumWon) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Drawn = append(n.Drawn, d)
}

// SMS captures outgoing messages instead of sending them.
type SMS struct {
	mu   sync.Mutex
	Sent map[string][]string
	Err  error
}

func (s *SMS) Send(_ context.Context, to, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if s.Sent == nil {
		s.Sent = map[string][]string{}
	}
	s.Sent[to] = append(s.Sent[to], body)
	return nil
}

// LastCode returns the trailing code of the last message sent to phone.
func (s *SMS) LastCode(phone string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.Sent[phone]
	if len(msgs) == 0 {
		return ""
	}
	parts := strings.Fields(msgs[len(msgs)-1])
	return parts[len(parts)-1]
}
