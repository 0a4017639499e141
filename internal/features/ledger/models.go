// Package ledger хранит журнал начислений orbit points.
// models.go описывает записи журнала, конфигурацию наград и связанные сущности.
package ledger

import "time"

// Category определяет, подвержены ли баллы затуханию.
type Category string

const (
	CategoryActivity     Category = "activity"     // затухает
	CategoryContribution Category = "contribution" // затухает
	CategoryOutcome      Category = "outcome"      // заработанное доверие, не затухает
	CategorySystem       Category = "system"       // служебные записи (decay, корректировки)
)

// DecayableCategories — категории, с которых считается затухание.
var DecayableCategories = []Category{CategoryActivity, CategoryContribution}

// Valid сообщает, известна ли категория.
func (c Category) Valid() bool {
	switch c {
	case CategoryActivity, CategoryContribution, CategoryOutcome, CategorySystem:
		return true
	}
	return false
}

// Типы действий из reward_config
const (
	ActionSendThankYou          = "send_thank_you"
	ActionReceiveThankYou       = "receive_thank_you"
	ActionDailyLogin            = "daily_login"
	ActionProfileUpdate         = "profile_update"
	ActionChapterPost           = "chapter_post"
	ActionEventAttendance       = "event_attendance"
	ActionEventFeedback         = "event_feedback"
	ActionConsultationCompleted = "consultation_completed"
	ActionAdminAdjustment       = "admin_adjustment"
	ActionPointDecay            = "point_decay"
	// Только для синтетической записи сводки, в БД не пишется.
	ActionPriorActivity = "prior_activity"
)

// User — пользователь (таблица users принадлежит сервису идентификации).
// OrbitPoints — кешированный баланс, должен сходиться с суммой журнала.
type User struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	OrbitPoints int64     `db:"orbit_points"`
	CreatedAt   time.Time `db:"created_at"`
}

// PointTransaction — одна неизменяемая запись журнала.
// Исправления делаются только новыми компенсирующими записями.
type PointTransaction struct {
	ID          string    `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"userId"`
	Points      int64     `db:"points" json:"points"` // >0 начисление, <0 decay/штраф
	ActionType  string    `db:"action_type" json:"actionType"`
	Category    Category  `db:"category" json:"category"`
	Description string    `db:"description" json:"description,omitempty"`
	SourceID    *string   `db:"source_id" json:"sourceId,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	// Synthetic — запись создана при чтении (prior activity) и не хранится в БД.
	Synthetic bool `db:"-" json:"synthetic,omitempty"`
}

// RewardConfig — строка reward_config: сколько баллов и как часто даёт действие.
type RewardConfig struct {
	ActionType string   `db:"action_type" json:"actionType"`
	Points     int64    `db:"points" json:"points"`
	DailyLimit *int     `db:"daily_limit" json:"dailyLimit"` // nil — без лимита
	Category   Category `db:"category" json:"category"`
	IsActive   bool     `db:"is_active" json:"isActive"`
}

// ActionTotal — агрегат журнала по одному action_type.
type ActionTotal struct {
	ActionType string
	Category   Category
	Points     int64
	Count      int
}

// ThankYouNote — благодарность от одного участника другому.
// Её ID становится source_id обеих записей журнала.
type ThankYouNote struct {
	ID         string    `db:"id" json:"id"`
	SenderID   int64     `db:"sender_id" json:"senderId"`
	ReceiverID int64     `db:"receiver_id" json:"receiverId"`
	Message    string    `db:"message" json:"message"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// DefaultRewardConfigs — начальная конфигурация наград (совпадает с сидом миграции).
func DefaultRewardConfigs() []RewardConfig {
	limit := func(n int) *int { return &n }
	return []RewardConfig{
		{ActionType: ActionSendThankYou, Points: 20, DailyLimit: limit(10), Category: CategoryContribution, IsActive: true},
		{ActionType: ActionReceiveThankYou, Points: 50, Category: CategoryOutcome, IsActive: true},
		{ActionType: ActionDailyLogin, Points: 5, DailyLimit: limit(1), Category: CategoryActivity, IsActive: true},
		{ActionType: ActionProfileUpdate, Points: 10, DailyLimit: limit(1), Category: CategoryActivity, IsActive: true},
		{ActionType: ActionChapterPost, Points: 10, DailyLimit: limit(5), Category: CategoryContribution, IsActive: true},
		{ActionType: ActionEventAttendance, Points: 30, Category: CategoryActivity, IsActive: true},
		{ActionType: ActionEventFeedback, Points: 15, DailyLimit: limit(3), Category: CategoryContribution, IsActive: true},
		{ActionType: ActionConsultationCompleted, Points: 100, Category: CategoryOutcome, IsActive: true},
		{ActionType: ActionAdminAdjustment, Points: 0, Category: CategorySystem, IsActive: true},
		{ActionType: ActionPointDecay, Points: 0, Category: CategorySystem, IsActive: false},
	}
}
