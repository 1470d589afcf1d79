package store

import (
	"time"

	"github.com/apexhq/apex/internal/types"
)

// UpdateConversationRequest carries the fields to merge into a conversation.
type UpdateConversationRequest struct {
	Conversation *types.Conversation
	// UpdateMask names the fields to merge: "title", "messages", "mode".
	UpdateMask []string
}

// UpdateConversation merges the masked fields into the stored conversation
// and rewrites its durable snapshot. Updating an unknown id is a no-op.
func (s *Store) UpdateConversation(req *UpdateConversationRequest) {
	if req.Conversation == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conversation, ok := s.index[req.Conversation.ID]
	if !ok {
		s.logger.Debug().Str("conversation_id", req.Conversation.ID).Msg("updating unknown conversation, ignoring")
		return
	}

	for _, field := range req.UpdateMask {
		switch field {
		case "title":
			conversation.Title = req.Conversation.Title
		case "messages":
			messages := make([]*types.Message, len(req.Conversation.Messages))
			copy(messages, req.Conversation.Messages)
			conversation.Messages = messages
		case "mode":
			conversation.Mode = req.Conversation.Mode
		}
	}
	conversation.UpdateTimestamp = time.Now().UnixMicro()
	s.persist(conversation)
}

// SetMessages replaces a conversation's message list.
func (s *Store) SetMessages(conversationID string, messages []*types.Message) {
	s.UpdateConversation(&UpdateConversationRequest{
		Conversation: &types.Conversation{ID: conversationID, Messages: messages},
		UpdateMask:   []string{"messages"},
	})
}

// SetTitle renames a conversation.
func (s *Store) SetTitle(conversationID, title string) {
	s.UpdateConversation(&UpdateConversationRequest{
		Conversation: &types.Conversation{ID: conversationID, Title: title},
		UpdateMask:   []string{"title"},
	})
}

// SetMode changes a conversation's generation mode. The caller is
// responsible for invalidating any cached generation session.
func (s *Store) SetMode(conversationID string, mode types.Mode) {
	s.UpdateConversation(&UpdateConversationRequest{
		Conversation: &types.Conversation{ID: conversationID, Mode: mode},
		UpdateMask:   []string{"mode"},
	})
}

// ToggleFeedback flips a message's feedback: setting the same value twice
// clears it back to none.
func (s *Store) ToggleFeedback(conversationID, messageID string, feedback types.Feedback) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversation, ok := s.index[conversationID]
	if !ok {
		return
	}
	index := conversation.MessageIndex(messageID)
	if index < 0 {
		return
	}
	message := conversation.Messages[index].Clone()
	if message.Feedback == feedback {
		message.Feedback = types.FeedbackNone
	} else {
		message.Feedback = feedback
	}
	conversation.Messages[index] = message
	conversation.UpdateTimestamp = time.Now().UnixMicro()
	s.persist(conversation)
}
