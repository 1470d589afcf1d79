package store

// DeleteConversation removes a conversation and its durable snapshot.
// The caller is responsible for evicting any associated generation session.
// Deleting an unknown id returns false.
func (s *Store) DeleteConversation(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[conversationID]; !ok {
		return false
	}
	delete(s.index, conversationID)
	for i, conversation := range s.conversations {
		if conversation.ID == conversationID {
			s.conversations = append(s.conversations[:i], s.conversations[i+1:]...)
			break
		}
	}
	s.unpersist(conversationID)
	return true
}
