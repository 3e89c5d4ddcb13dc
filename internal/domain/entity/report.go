package entity

import (
	"fmt"
	"time"
)

const ReportPending = "pending"

type Report struct {
	ID             string    `json:"id" firestore:"-"`
	MessageRef     string    `json:"message_ref" firestore:"messageRef"`
	ConversationID string    `json:"conversation_id" firestore:"conversationId"`
	MessageID      string    `json:"message_id" firestore:"messageId"`
	ReporterID     string    `json:"reporter_id" firestore:"reporterUid"`
	Reason         string    `json:"reason" firestore:"reason"`
	Status         string    `json:"status" firestore:"status"`
	CreatedAt      time.Time `json:"created_at" firestore:"createdAt"`
}

func MessageRef(conversationID, messageID string) string {
	return fmt.Sprintf("conversations/%s/messages/%s", conversationID, messageID)
}
