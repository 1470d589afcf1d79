package store

import (
	"github.com/apexhq/apex/internal/types"
)

// GetConversation returns a copy of the conversation with the given id,
// or false if it does not exist. Mutation goes through UpdateConversation.
func (s *Store) GetConversation(conversationID string) (*types.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversation, ok := s.index[conversationID]
	if !ok {
		return nil, false
	}
	return conversation.Clone(), true
}
