package turn

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/apexhq/apex/internal/types"
)

// FallbackTitle replaces the default title when title generation fails.
const FallbackTitle = "Chat"

const titleTimeout = 30 * time.Second

// Send appends the user's message to the conversation and runs the turn in
// the conversation's current mode. On the first message it also kicks off
// title generation, which never blocks or affects the turn.
func (o *Orchestrator) Send(ctx context.Context, conversationID, text string, attachment *types.Attachment) error {
	conversation, ok := o.store.GetConversation(conversationID)
	if !ok {
		return errors.Errorf("conversation %q not found", conversationID)
	}

	userMessage := types.NewUserMessage(text, attachment)
	history := append(conversation.Messages, userMessage)
	o.store.SetMessages(conversationID, history)
	o.observer.ConversationUpdated(conversationID)

	if len(conversation.Messages) == 0 {
		go o.generateTitle(conversationID, text)
	}

	return o.RunTurn(ctx, &TurnRequest{
		ConversationID: conversationID,
		Prompt:         text,
		Attachment:     attachment,
		History:        history,
		Mode:           conversation.Mode,
	})
}

// generateTitle proposes a short title from the first prompt and updates the
// conversation asynchronously. Failure falls back to a fixed default.
func (o *Orchestrator) generateTitle(conversationID, prompt string) {
	ctx, cancel := context.WithTimeout(context.Background(), titleTimeout)
	defer cancel()

	title, err := o.client.GenerateTitle(ctx, prompt)
	if err != nil {
		o.logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("title generation failed")
		title = FallbackTitle
	}
	o.store.SetTitle(conversationID, title)
	o.observer.ConversationUpdated(conversationID)
}
