// Package thankyou — благодарности между участниками.
// Отправитель должен пройти шлюз доверия и попарный кулдаун; обе стороны
// получают баллы в одной транзакции вместе с записью самой благодарности.
package thankyou

import (
	"serotonyl.ru/orbit-points/internal/features/ledger"
	"serotonyl.ru/orbit-points/internal/features/rewards"
)

// SendRequest — благодарность от SenderID к ReceiverID.
type SendRequest struct {
	SenderID   int64
	ReceiverID int64
	Message    string
}

// SendResult — записанная благодарность и оба начисления.
type SendResult struct {
	Note          ledger.ThankYouNote  `json:"note"`
	SenderAward   *rewards.AwardResult `json:"senderAward"`
	ReceiverAward *rewards.AwardResult `json:"receiverAward"`
}

// sendBody — тело POST /api/thank-you.
type sendBody struct {
	ReceiverID int64  `json:"receiverId" validate:"required,gt=0"`
	Message    string `json:"message" validate:"required"`
}
