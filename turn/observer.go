package turn

// AnimationState is the UI status hint published while a turn runs.
type AnimationState string

const (
	AnimationIdle     AnimationState = "idle"
	AnimationThinking AnimationState = "thinking"
	AnimationSpeaking AnimationState = "speaking"
)

// Observer receives change signals from the orchestrator. The store remains
// the single source of truth; observers re-read it on ConversationUpdated.
type Observer interface {
	// ConversationUpdated signals that the conversation's messages or
	// metadata changed.
	ConversationUpdated(conversationID string)
	// AnimationChanged signals a new animation state.
	AnimationChanged(state AnimationState)
	// Notify surfaces a transient user-visible notification.
	Notify(message string)
}

// NopObserver ignores all signals.
type NopObserver struct{}

func (NopObserver) ConversationUpdated(string)      {}
func (NopObserver) AnimationChanged(AnimationState) {}
func (NopObserver) Notify(string)                   {}
