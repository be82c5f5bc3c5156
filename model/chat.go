package model

import (
	"time"
)

// ChatMessage is one message in a per-document, per-session conversation
// thread. Messages are append-only and totally ordered within a
// (document, session) pair by Seq.
type ChatMessage struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Seq         uint64    `gorm:"autoIncrement;uniqueIndex" json:"-"`
	DocumentID  string    `gorm:"size:36;index:idx_chat_thread" json:"document_id"`
	SessionID   string    `gorm:"size:64;index:idx_chat_thread" json:"session_id"`
	MessageType string    `gorm:"size:16" json:"type"` // user, assistant
	Message     string    `gorm:"type:text" json:"message"`
	Timestamp   time.Time `json:"timestamp"`
}

// Chat message types
const (
	MessageTypeUser      = "user"
	MessageTypeAssistant = "assistant"
)
