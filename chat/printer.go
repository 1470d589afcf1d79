package chat

import (
	"strings"
	"sync"

	"github.com/apexhq/apex/internal/cli"
	"github.com/apexhq/apex/internal/types"
	"github.com/apexhq/apex/store"
	"github.com/apexhq/apex/turn"
)

// printer renders orchestrator change signals for the active conversation.
// It re-reads the store on every update and prints only the delta of the
// trailing model message, so streamed text appears incrementally.
type printer struct {
	mu     sync.Mutex
	store  *store.Store
	active string

	lastMessageID string
	lastPrinted   string
}

func newPrinter(s *store.Store) *printer {
	return &printer{store: s}
}

// SetActive switches which conversation is rendered. Updates for other
// conversations still reach the store; they are just not displayed.
func (p *printer) SetActive(conversationID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = conversationID
	p.lastMessageID = ""
	p.lastPrinted = ""
}

func (p *printer) ConversationUpdated(conversationID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if conversationID != p.active {
		return
	}
	conversation, ok := p.store.GetConversation(conversationID)
	if !ok || len(conversation.Messages) == 0 {
		return
	}
	last := conversation.Messages[len(conversation.Messages)-1]
	if last.Role != types.RoleModel {
		return
	}
	if last.ID != p.lastMessageID {
		p.lastMessageID = last.ID
		p.lastPrinted = ""
	}
	if last.Content == p.lastPrinted {
		return
	}
	if strings.HasPrefix(last.Content, p.lastPrinted) {
		// Monotonically growing stream: print the new suffix.
		cli.AIOutput(last.Content[len(p.lastPrinted):])
	} else {
		// In-place rewrite, e.g. a video status transition.
		cli.Status(last.Content + "\n")
	}
	p.lastPrinted = last.Content
}

func (p *printer) AnimationChanged(turn.AnimationState) {}

func (p *printer) Notify(message string) {
	cli.Notification("\n%s\n", message)
}
