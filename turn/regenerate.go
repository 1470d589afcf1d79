package turn

import (
	"context"

	"github.com/apexhq/apex/internal/types"
)

// Regenerator truncates a conversation at a target model message and
// replays the turn that produced it.
type Regenerator struct {
	orchestrator *Orchestrator
}

// NewRegenerator instantiates a regenerator on top of the orchestrator.
func NewRegenerator(orchestrator *Orchestrator) *Regenerator {
	return &Regenerator{orchestrator: orchestrator}
}

// Regenerate drops the target model message and everything after it, then
// re-runs the turn from the preceding user message's original prompt and
// attachment, reusing the conversation's current mode. The target must be a
// model message preceded by a user message; anything else is silently
// rejected with no state change.
func (r *Regenerator) Regenerate(ctx context.Context, conversationID, messageID string) error {
	o := r.orchestrator
	conversation, ok := o.store.GetConversation(conversationID)
	if !ok {
		return nil
	}
	index := conversation.MessageIndex(messageID)
	if index < 1 {
		return nil
	}
	target := conversation.Messages[index]
	promptMessage := conversation.Messages[index-1]
	if target.Role != types.RoleModel || promptMessage.Role != types.RoleUser {
		return nil
	}

	// The cached session was built from history that is about to be
	// truncated; it would diverge from truth.
	o.sessions.Invalidate(conversationID)

	history := conversation.Messages[:index]
	o.store.SetMessages(conversationID, history)
	o.observer.ConversationUpdated(conversationID)

	return o.RunTurn(ctx, &TurnRequest{
		ConversationID: conversationID,
		Prompt:         promptMessage.Content,
		Attachment:     promptMessage.Attachment,
		History:        history,
		Mode:           conversation.Mode,
		PlaceholderID:  target.ID,
	})
}
