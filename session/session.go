// Package session caches one stateful generation session per conversation.
// Backend sessions are expensive to reconstruct; the cache avoids re-sending
// full history on every turn. Correctness requires invalidation on any event
// that changes what "history" means: deletion, mode switch, regeneration.
package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/apexhq/apex/internal/gen"
	"github.com/apexhq/apex/internal/types"
)

// DefaultSystemInstruction is bound to sessions without an override.
const DefaultSystemInstruction = "You are Apex, a powerful and friendly AI assistant. Your personality is analytical, creative, concise, and pedagogical. You must always aim for the highest level of accuracy and relevance in your responses. Please incorporate relevant emojis naturally throughout your answers to make them more engaging and expressive, just like ChatGPT would. ✨ Format your answers clearly using markdown where appropriate, especially for code blocks."

// Cache maps conversation ids to live generation sessions.
type Cache struct {
	mu       sync.Mutex
	client   gen.Client
	sessions map[string]gen.Session
	logger   zerolog.Logger
}

// NewCache instantiates an empty cache backed by the given client.
func NewCache(client gen.Client, logger zerolog.Logger) *Cache {
	return &Cache{
		client:   client,
		sessions: map[string]gen.Session{},
		logger:   logger,
	}
}

// GetOrCreate returns the cached session for the conversation, or builds one
// by replaying the given history (which must exclude the trailing unfinished
// placeholder) and binding the given or default system instruction.
func (c *Cache) GetOrCreate(ctx context.Context, conversationID string, history []*types.Message, systemInstruction string) (gen.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if session, ok := c.sessions[conversationID]; ok {
		return session, nil
	}

	if systemInstruction == "" {
		systemInstruction = DefaultSystemInstruction
	}
	session, err := c.client.CreateSession(ctx, cleanHistory(history), systemInstruction)
	if err != nil {
		return nil, err
	}
	c.sessions[conversationID] = session
	c.logger.Debug().Str("conversation_id", conversationID).Int("history", len(history)).Msg("created generation session")
	return session, nil
}

// Invalidate evicts any cached session for the conversation. The next
// GetOrCreate rebuilds from current truth.
func (c *Cache) Invalidate(conversationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, conversationID)
}

// cleanHistory drops model messages with neither text nor attachment.
// A placeholder persisted by an interrupted turn must not replay as an
// empty model turn.
func cleanHistory(history []*types.Message) []*types.Message {
	clean := make([]*types.Message, 0, len(history))
	for _, message := range history {
		if message.Role == types.RoleModel && message.Empty() {
			continue
		}
		clean = append(clean, message)
	}
	return clean
}
