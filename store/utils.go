package store

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/apexhq/apex/internal/types"
)

// persist writes one conversation's row to the durable snapshot, stripping
// attachment payloads to respect storage size limits. Failures are logged
// and swallowed; the in-memory state remains authoritative.
func (s *Store) persist(conversation *types.Conversation) {
	if s.db == nil {
		return
	}
	messagesJSON, err := marshalStripped(conversation.Messages)
	if err != nil {
		s.logger.Warn().Err(err).Str("conversation_id", conversation.ID).Msg("marshaling messages for snapshot")
		return
	}
	_, err = s.db.Exec(`
		REPLACE INTO conversations (id, title, mode, creation_timestamp, update_timestamp, messages)
		VALUES (?, ?, ?, ?, ?, ?)
	`, conversation.ID, conversation.Title, string(conversation.Mode),
		conversation.CreationTimestamp, conversation.UpdateTimestamp, messagesJSON)
	if err != nil {
		s.logger.Warn().Err(err).Str("conversation_id", conversation.ID).Msg("writing conversation snapshot")
	}
}

// unpersist removes one conversation's row from the durable snapshot.
func (s *Store) unpersist(conversationID string) {
	if s.db == nil {
		return
	}
	if _, err := s.db.Exec(`DELETE FROM conversations WHERE id = ?`, conversationID); err != nil {
		s.logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("deleting conversation snapshot")
	}
}

// marshalStripped encodes messages with every attachment field dropped.
// Content, sources and feedback are preserved.
func marshalStripped(messages []*types.Message) (string, error) {
	stripped := make([]*types.Message, 0, len(messages))
	for _, message := range messages {
		if message.Attachment == nil {
			stripped = append(stripped, message)
			continue
		}
		clone := message.Clone()
		clone.Attachment = nil
		stripped = append(stripped, clone)
	}
	bytes, err := json.Marshal(stripped)
	if err != nil {
		return "", errors.Wrap(err, "marshaling messages")
	}
	return string(bytes), nil
}
