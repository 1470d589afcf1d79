package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/apexhq/apex/internal/types"
)

// CreateConversation instantiates a new conversation with an empty message
// list, the default mode and the default title, inserts it at the front of
// the ordered list and returns a copy of it.
func (s *Store) CreateConversation() *types.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMicro()
	conversation := &types.Conversation{
		ID:                uuid.New().String()[:8],
		Title:             DefaultTitle,
		Mode:              types.ModeDefault,
		CreationTimestamp: now,
		UpdateTimestamp:   now,
	}
	s.conversations = append([]*types.Conversation{conversation}, s.conversations...)
	s.index[conversation.ID] = conversation
	s.persist(conversation)
	return conversation.Clone()
}
