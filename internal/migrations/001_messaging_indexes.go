package migrations

import (
	"gorm.io/gorm"
)

// Migration001ConversationIndexes backs ListConversation, which reads one
// conversation ordered by creation time.
func Migration001ConversationIndexes() Migration {
	return Migration{
		ID:   "001_conversation_indexes",
		Name: "Add conversation timeline index on messages",
		Up: func(db *gorm.DB) error {
			return db.Exec(`CREATE INDEX IF NOT EXISTS idx_messages_conversation_created
				ON messages (conversation_id, created_at)`).Error
		},
	}
}

// Migration002UnreadIndexes backs unread counting during chat-list reconciliation
// and the delivery-state conditional updates.
func Migration002UnreadIndexes() Migration {
	return Migration{
		ID:        "002_unread_indexes",
		Name:      "Add unread and delivery-state indexes on messages",
		DependsOn: []string{"001_conversation_indexes"},
		Up: func(db *gorm.DB) error {
			stmts := []string{
				`CREATE INDEX IF NOT EXISTS idx_messages_receiver_unread
					ON messages (receiver_id, sender_id, is_read)`,
				`CREATE INDEX IF NOT EXISTS idx_messages_id_state
					ON messages (id, delivery_state)`,
			}
			for _, stmt := range stmts {
				if err := db.Exec(stmt).Error; err != nil {
					return err
				}
			}
			return nil
		},
	}
}
