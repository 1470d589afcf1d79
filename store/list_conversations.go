package store

import (
	"github.com/apexhq/apex/internal/types"
)

// ListConversations returns copies of all conversations, newest first.
func (s *Store) ListConversations() []*types.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversations := make([]*types.Conversation, 0, len(s.conversations))
	for _, conversation := range s.conversations {
		conversations = append(conversations, conversation.Clone())
	}
	return conversations
}
