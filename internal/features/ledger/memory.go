// Package ledger — memory.go хранит журнал в памяти процесса.
// Используется при APP_STORE=memory (локальный запуск без PostgreSQL) и в тестах.
// Транзакция работает на копии состояния и подменяет его только при успехе.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"serotonyl.ru/orbit-points/internal/common"
)

type interaction struct {
	senderID   int64
	receiverID int64
	actionType string
	at         time.Time
}

type memState struct {
	users        map[int64]User
	configs      map[string]RewardConfig
	txs          []PointTransaction
	interactions []interaction
	notes        map[string]ThankYouNote
}

func (s *memState) clone() *memState {
	c := &memState{
		users:        make(map[int64]User, len(s.users)),
		configs:      make(map[string]RewardConfig, len(s.configs)),
		txs:          append([]PointTransaction(nil), s.txs...),
		interactions: append([]interaction(nil), s.interactions...),
		notes:        make(map[string]ThankYouNote, len(s.notes)),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.configs {
		c.configs[k] = v
	}
	for k, v := range s.notes {
		c.notes[k] = v
	}
	return c
}

// MemoryStore — Store в памяти. Транзакции сериализуются одним мьютексом.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

// NewMemoryStore создаёт пустое хранилище с конфигурацией наград по умолчанию.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{state: &memState{
		users:   make(map[int64]User),
		configs: make(map[string]RewardConfig),
		notes:   make(map[string]ThankYouNote),
	}}
	for _, c := range DefaultRewardConfigs() {
		s.state.configs[c.ActionType] = c
	}
	return s
}

// PutUser создаёт или заменяет пользователя (роль сервиса идентификации).
func (s *MemoryStore) PutUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.users[u.ID] = u
}

// UpsertUser регистрирует пользователя или обновляет имя, не трогая баланс.
func (s *MemoryStore) UpsertUser(_ context.Context, userID int64, name string, now time.Time) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.state.users[userID]
	if !ok {
		u = User{ID: userID, CreatedAt: now}
	}
	u.Name = name
	s.state.users[userID] = u
	return &u, nil
}

// PutRewardConfig создаёт или заменяет настройку действия.
func (s *MemoryStore) PutRewardConfig(c RewardConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.configs[c.ActionType] = c
}

// AppendRaw добавляет запись журнала без изменения баланса.
// Нужен для импорта истории и тестовых сценариев с расхождением баланса.
func (s *MemoryStore) AppendRaw(t PointTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.txs = append(s.state.txs, t)
}

// WithTx выполняет fn на копии состояния; копия становится основной только без ошибок.
func (s *MemoryStore) WithTx(ctx context.Context, fn func(q Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(&memQueries{st: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("транзакция прервана: %w", err)
	}
	s.state = work
	return nil
}

// ReadSnapshot выполняет fn под мьютексом на текущем состоянии.
// Записи внутри fn не предусмотрены.
func (s *MemoryStore) ReadSnapshot(ctx context.Context, fn func(q Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("чтение прервано: %w", err)
	}
	return fn(&memQueries{st: s.state.clone()})
}

func (s *MemoryStore) read() (*memQueries, func()) {
	s.mu.Lock()
	return &memQueries{st: s.state}, s.mu.Unlock
}

func (s *MemoryStore) GetUser(ctx context.Context, userID int64) (*User, error) {
	q, unlock := s.read()
	defer unlock()
	return q.GetUser(ctx, userID)
}

func (s *MemoryStore) LockUser(ctx context.Context, userID int64) (*User, error) {
	q, unlock := s.read()
	defer unlock()
	return q.LockUser(ctx, userID)
}

func (s *MemoryStore) AddToBalance(ctx context.Context, userID, delta int64) (int64, error) {
	q, unlock := s.read()
	defer unlock()
	return q.AddToBalance(ctx, userID, delta)
}

func (s *MemoryStore) CountUsersAbove(ctx context.Context, points int64) (int, error) {
	q, unlock := s.read()
	defer unlock()
	return q.CountUsersAbove(ctx, points)
}

func (s *MemoryStore) RewardConfig(ctx context.Context, actionType string) (*RewardConfig, error) {
	q, unlock := s.read()
	defer unlock()
	return q.RewardConfig(ctx, actionType)
}

func (s *MemoryStore) ListRewardConfigs(ctx context.Context) ([]RewardConfig, error) {
	q, unlock := s.read()
	defer unlock()
	return q.ListRewardConfigs(ctx)
}

func (s *MemoryStore) InsertTransaction(ctx context.Context, t *PointTransaction) error {
	q, unlock := s.read()
	defer unlock()
	return q.InsertTransaction(ctx, t)
}

func (s *MemoryStore) CountActionsSince(ctx context.Context, userID int64, actionType string, since time.Time) (int, error) {
	q, unlock := s.read()
	defer unlock()
	return q.CountActionsSince(ctx, userID, actionType, since)
}

func (s *MemoryStore) SumPoints(ctx context.Context, userID int64) (int64, error) {
	q, unlock := s.read()
	defer unlock()
	return q.SumPoints(ctx, userID)
}

func (s *MemoryStore) SumPointsByCategories(ctx context.Context, userID int64, categories []Category) (int64, error) {
	q, unlock := s.read()
	defer unlock()
	return q.SumPointsByCategories(ctx, userID, categories)
}

func (s *MemoryStore) ActionTotals(ctx context.Context, userID int64) ([]ActionTotal, error) {
	q, unlock := s.read()
	defer unlock()
	return q.ActionTotals(ctx, userID)
}

func (s *MemoryStore) ListTransactions(ctx context.Context, userID int64, limit int) ([]*PointTransaction, error) {
	q, unlock := s.read()
	defer unlock()
	return q.ListTransactions(ctx, userID, limit)
}

func (s *MemoryStore) LatestActivity(ctx context.Context, userID int64) (*time.Time, error) {
	q, unlock := s.read()
	defer unlock()
	return q.LatestActivity(ctx, userID)
}

func (s *MemoryStore) InactiveUsers(ctx context.Context, since time.Time) ([]int64, error) {
	q, unlock := s.read()
	defer unlock()
	return q.InactiveUsers(ctx, since)
}

func (s *MemoryStore) LastInteraction(ctx context.Context, senderID, receiverID int64, actionType string) (*time.Time, error) {
	q, unlock := s.read()
	defer unlock()
	return q.LastInteraction(ctx, senderID, receiverID, actionType)
}

func (s *MemoryStore) RecordInteraction(ctx context.Context, senderID, receiverID int64, actionType string, at time.Time) error {
	q, unlock := s.read()
	defer unlock()
	return q.RecordInteraction(ctx, senderID, receiverID, actionType, at)
}

func (s *MemoryStore) InsertThankYouNote(ctx context.Context, note *ThankYouNote) error {
	q, unlock := s.read()
	defer unlock()
	return q.InsertThankYouNote(ctx, note)
}

// memQueries — Queries над конкретным снимком состояния. Блокировки держит владелец.
type memQueries struct {
	st *memState
}

func (q *memQueries) GetUser(_ context.Context, userID int64) (*User, error) {
	u, ok := q.st.users[userID]
	if !ok {
		return nil, fmt.Errorf("user_id=%d: %w", userID, common.ErrUserNotFound)
	}
	return &u, nil
}

func (q *memQueries) LockUser(ctx context.Context, userID int64) (*User, error) {
	return q.GetUser(ctx, userID)
}

func (q *memQueries) AddToBalance(_ context.Context, userID, delta int64) (int64, error) {
	u, ok := q.st.users[userID]
	if !ok {
		return 0, fmt.Errorf("user_id=%d: %w", userID, common.ErrUserNotFound)
	}
	u.OrbitPoints += delta
	q.st.users[userID] = u
	return u.OrbitPoints, nil
}

func (q *memQueries) CountUsersAbove(_ context.Context, points int64) (int, error) {
	count := 0
	for _, u := range q.st.users {
		if u.OrbitPoints > points {
			count++
		}
	}
	return count, nil
}

func (q *memQueries) RewardConfig(_ context.Context, actionType string) (*RewardConfig, error) {
	c, ok := q.st.configs[actionType]
	if !ok {
		return nil, fmt.Errorf("reward_config %q: %w", actionType, common.ErrNotFound)
	}
	return &c, nil
}

func (q *memQueries) ListRewardConfigs(_ context.Context) ([]RewardConfig, error) {
	out := make([]RewardConfig, 0, len(q.st.configs))
	for _, c := range q.st.configs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActionType < out[j].ActionType })
	return out, nil
}

func (q *memQueries) InsertTransaction(_ context.Context, t *PointTransaction) error {
	if _, ok := q.st.users[t.UserID]; !ok {
		return fmt.Errorf("user_id=%d: %w", t.UserID, common.ErrUserNotFound)
	}
	for _, existing := range q.st.txs {
		if existing.ID == t.ID {
			return fmt.Errorf("транзакция %s: %w", t.ID, common.ErrDuplicate)
		}
		if t.SourceID != nil && existing.SourceID != nil &&
			existing.UserID == t.UserID && existing.ActionType == t.ActionType &&
			*existing.SourceID == *t.SourceID {
			return fmt.Errorf("начисление %s/%s уже записано: %w", t.ActionType, *t.SourceID, common.ErrDuplicate)
		}
	}
	q.st.txs = append(q.st.txs, *t)
	return nil
}

func (q *memQueries) CountActionsSince(_ context.Context, userID int64, actionType string, since time.Time) (int, error) {
	count := 0
	for _, t := range q.st.txs {
		if t.UserID == userID && t.ActionType == actionType && !t.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (q *memQueries) SumPoints(_ context.Context, userID int64) (int64, error) {
	var sum int64
	for _, t := range q.st.txs {
		if t.UserID == userID {
			sum += t.Points
		}
	}
	return sum, nil
}

func (q *memQueries) SumPointsByCategories(_ context.Context, userID int64, categories []Category) (int64, error) {
	var sum int64
	for _, t := range q.st.txs {
		if t.UserID != userID {
			continue
		}
		for _, c := range categories {
			if t.Category == c {
				sum += t.Points
				break
			}
		}
	}
	return sum, nil
}

func (q *memQueries) ActionTotals(_ context.Context, userID int64) ([]ActionTotal, error) {
	type key struct {
		action   string
		category Category
	}
	agg := make(map[key]*ActionTotal)
	var order []key
	for _, t := range q.st.txs {
		if t.UserID != userID {
			continue
		}
		k := key{t.ActionType, t.Category}
		a, ok := agg[k]
		if !ok {
			a = &ActionTotal{ActionType: t.ActionType, Category: t.Category}
			agg[k] = a
			order = append(order, k)
		}
		a.Points += t.Points
		a.Count++
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].action != order[j].action {
			return order[i].action < order[j].action
		}
		return order[i].category < order[j].category
	})
	out := make([]ActionTotal, 0, len(order))
	for _, k := range order {
		out = append(out, *agg[k])
	}
	return out, nil
}

func (q *memQueries) ListTransactions(_ context.Context, userID int64, limit int) ([]*PointTransaction, error) {
	var out []*PointTransaction
	for i := range q.st.txs {
		if q.st.txs[i].UserID == userID {
			t := q.st.txs[i]
			out = append(out, &t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (q *memQueries) LatestActivity(_ context.Context, userID int64) (*time.Time, error) {
	var latest *time.Time
	for i := range q.st.txs {
		t := q.st.txs[i]
		if t.UserID == userID && (latest == nil || t.CreatedAt.After(*latest)) {
			at := t.CreatedAt
			latest = &at
		}
	}
	return latest, nil
}

func (q *memQueries) InactiveUsers(_ context.Context, since time.Time) ([]int64, error) {
	active := make(map[int64]bool)
	for _, t := range q.st.txs {
		if !t.CreatedAt.Before(since) {
			active[t.UserID] = true
		}
	}
	var ids []int64
	for id, u := range q.st.users {
		if u.OrbitPoints > 0 && !active[id] {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (q *memQueries) LastInteraction(_ context.Context, senderID, receiverID int64, actionType string) (*time.Time, error) {
	var last *time.Time
	for _, in := range q.st.interactions {
		if in.senderID == senderID && in.receiverID == receiverID && in.actionType == actionType {
			if last == nil || in.at.After(*last) {
				at := in.at
				last = &at
			}
		}
	}
	return last, nil
}

func (q *memQueries) RecordInteraction(_ context.Context, senderID, receiverID int64, actionType string, at time.Time) error {
	q.st.interactions = append(q.st.interactions, interaction{
		senderID: senderID, receiverID: receiverID, actionType: actionType, at: at,
	})
	return nil
}

func (q *memQueries) InsertThankYouNote(_ context.Context, note *ThankYouNote) error {
	if _, ok := q.st.notes[note.ID]; ok {
		return fmt.Errorf("благодарность %s: %w", note.ID, common.ErrDuplicate)
	}
	q.st.notes[note.ID] = *note
	return nil
}
