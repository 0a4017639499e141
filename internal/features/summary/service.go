package summary

import (
	"context"
	"sort"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/orbit-points/internal/common"
	"serotonyl.ru/orbit-points/internal/features/ledger"
)

// Service собирает сводку. Ничего не пишет.
type Service struct {
	store       ledger.Store
	recentLimit int
	timeout     time.Duration
}

// NewService создаёт сервис сводки; recentLimit ограничивает recentActivity.
func NewService(store ledger.Store, recentLimit int, timeout time.Duration) *Service {
	return &Service{store: store, recentLimit: recentLimit, timeout: timeout}
}

// Summarize читает баланс, рейтинг и журнал одним снимком (ReadSnapshot):
// начисление, закоммиченное между запросами, не даёт ложного расхождения.
func (s *Service) Summarize(ctx context.Context, userID int64) (*Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var sum *Summary
	err := s.store.ReadSnapshot(ctx, func(q ledger.Queries) error {
		var err error
		sum, err = s.read(ctx, q, userID)
		return err
	})
	if err != nil {
		return nil, common.Persistence("сводка", err)
	}

	if sum.Discrepancy != 0 {
		discrepancies.Inc()
		log.WithFields(log.Fields{
			"user_id":       userID,
			"balance":       sum.CurrentBalance,
			"history_total": sum.HistoryTotal,
		}).Debug("Баланс расходится с журналом, добавлена запись prior_activity")
	}
	return sum, nil
}

func (s *Service) read(ctx context.Context, q ledger.Queries, userID int64) (*Summary, error) {
	user, err := q.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	above, err := q.CountUsersAbove(ctx, user.OrbitPoints)
	if err != nil {
		return nil, err
	}
	totals, err := q.ActionTotals(ctx, userID)
	if err != nil {
		return nil, err
	}
	historyTotal, err := q.SumPoints(ctx, userID)
	if err != nil {
		return nil, err
	}
	recent, err := q.ListTransactions(ctx, userID, s.recentLimit)
	if err != nil {
		return nil, err
	}

	sum := &Summary{
		UserID:         userID,
		CurrentBalance: user.OrbitPoints,
		Rank:           above + 1,
		HistoryTotal:   historyTotal,
		Discrepancy:    user.OrbitPoints - historyTotal,
	}

	if sum.Discrepancy != 0 {
		prior := &ledger.PointTransaction{
			ID:          "prior-activity-" + strconv.FormatInt(userID, 10),
			UserID:      userID,
			Points:      sum.Discrepancy,
			ActionType:  ledger.ActionPriorActivity,
			Category:    ledger.CategorySystem,
			Description: "Points earned before the ledger was introduced",
			CreatedAt:   user.CreatedAt,
			Synthetic:   true,
		}
		totals = append(totals, ledger.ActionTotal{
			ActionType: prior.ActionType,
			Category:   prior.Category,
			Points:     prior.Points,
			Count:      1,
		})
		recent = insertChronological(recent, prior, s.recentLimit)
	}

	sum.Breakdown = breakdown(totals)
	if recent == nil {
		recent = []*ledger.PointTransaction{}
	}
	sum.RecentActivity = recent
	return sum, nil
}

// insertChronological вставляет запись в список, отсортированный по убыванию
// created_at, и обрезает его до limit.
func insertChronological(list []*ledger.PointTransaction, entry *ledger.PointTransaction, limit int) []*ledger.PointTransaction {
	i := sort.Search(len(list), func(i int) bool {
		return !list[i].CreatedAt.After(entry.CreatedAt)
	})
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = entry
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list
}

func breakdown(totals []ledger.ActionTotal) []GroupTotal {
	byGroup := make(map[string]*GroupTotal, len(groupOrder))
	for _, t := range totals {
		g := groupFor(t.ActionType, t.Category)
		gt, ok := byGroup[g]
		if !ok {
			gt = &GroupTotal{Group: g}
			byGroup[g] = gt
		}
		gt.Points += t.Points
		gt.Count += t.Count
	}

	out := make([]GroupTotal, 0, len(byGroup))
	for _, g := range groupOrder {
		if gt, ok := byGroup[g]; ok {
			out = append(out, *gt)
		}
	}
	return out
}
