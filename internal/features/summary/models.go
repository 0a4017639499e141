// Package summary — сводка по баллам пользователя: баланс, место в рейтинге,
// разбивка по группам и последние записи журнала. Расхождение кешированного
// баланса с журналом показывается синтетической записью prior_activity.
package summary

import "serotonyl.ru/orbit-points/internal/features/ledger"

// Группы отображения в разбивке.
const (
	GroupThankYouNotes = "thank_you_notes"
	GroupReliability   = "reliability"
	GroupActivity      = "activity"
	GroupContribution  = "contribution"
	GroupSystem        = "system"
	GroupPriorActivity = "prior_activity"
)

// groupOrder — порядок групп в ответе.
var groupOrder = []string{
	GroupThankYouNotes, GroupReliability, GroupActivity,
	GroupContribution, GroupSystem, GroupPriorActivity,
}

// GroupTotal — сумма и количество записей одной группы.
type GroupTotal struct {
	Group  string `json:"group"`
	Points int64  `json:"points"`
	Count  int    `json:"count"`
}

// Summary — ответ GET /api/points/summary.
type Summary struct {
	UserID         int64                      `json:"userId"`
	CurrentBalance int64                      `json:"currentBalance"`
	Rank           int                        `json:"rank"`
	Breakdown      []GroupTotal               `json:"breakdown"`
	RecentActivity []*ledger.PointTransaction `json:"recentActivity"`
	HistoryTotal   int64                      `json:"historyTotal"`
	// Discrepancy = CurrentBalance - HistoryTotal (0, если журнал сходится)
	Discrepancy int64 `json:"discrepancy"`
}

// groupFor относит действие к группе отображения.
func groupFor(actionType string, category ledger.Category) string {
	switch actionType {
	case ledger.ActionSendThankYou, ledger.ActionReceiveThankYou:
		return GroupThankYouNotes
	case ledger.ActionPriorActivity:
		return GroupPriorActivity
	}
	switch category {
	case ledger.CategoryOutcome:
		return GroupReliability
	case ledger.CategoryActivity:
		return GroupActivity
	case ledger.CategoryContribution:
		return GroupContribution
	default:
		return GroupSystem
	}
}
