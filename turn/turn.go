// Package turn executes one conversational turn to completion or failure,
// always leaving the conversation in a consistent, renderable state.
package turn

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/apexhq/apex/internal/gen"
	"github.com/apexhq/apex/internal/types"
	"github.com/apexhq/apex/session"
	"github.com/apexhq/apex/store"
)

// ApologyMessage overwrites the placeholder when a turn fails. It is the
// only user-surfaced failure text.
const ApologyMessage = "Sorry, I encountered an error. Please try again."

// CodeSystemInstruction is bound to sessions of code-mode conversations.
const CodeSystemInstruction = "You are an expert programmer. Provide only code in your responses, with brief explanations in comments. Use markdown for all code blocks."

// Video generation status texts, published into the placeholder in order.
const (
	videoStatusStarting   = "Starting video generation..."
	videoStatusCrafting   = "Apex is crafting your video scene by scene..."
	videoStatusRendering  = "Rendering the frames, this can take a moment..."
	videoStatusFinalizing = "Finalizing and downloading your video..."
)

// videoPollSchedule floors at its last value: poll fast early, degrade after.
var videoPollSchedule = []time.Duration{
	10 * time.Second,
	10 * time.Second,
	15 * time.Second,
	20 * time.Second,
}

// ErrTurnInFlight is returned when a turn is already running for the
// conversation.
var ErrTurnInFlight = errors.New("turn already in flight for conversation")

// errVideoWithoutPayload marks a job that reported done with no resolvable
// video.
var errVideoWithoutPayload = errors.New("video generation completed, but no video was returned")

// TurnRequest describes one turn: one user input and its model response.
type TurnRequest struct {
	ConversationID string
	Prompt         string
	Attachment     *types.Attachment
	// History is the message list as of turn start, ending with the user
	// message that triggers this turn. Earlier messages are never mutated
	// mid-turn.
	History []*types.Message
	Mode    types.Mode

	// PlaceholderID, when set, is reused as the model message's id so a
	// regeneration rewrites the old response in place.
	PlaceholderID string
}

// turnResult is the uniform outcome of every mode handler.
type turnResult struct {
	content    string
	attachment *types.Attachment
	sources    []*types.Source
}

// Orchestrator dispatches turns by mode, streams updates into the store and
// finalizes or fails each turn.
type Orchestrator struct {
	store    *store.Store
	sessions *session.Cache
	client   gen.Client
	observer Observer
	logger   zerolog.Logger
	wait     func(ctx context.Context, d time.Duration) error

	mu        sync.Mutex
	inflight  map[string]bool
	busy      int
	animation AnimationState
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithObserver installs a change observer.
func WithObserver(observer Observer) Option {
	return func(o *Orchestrator) { o.observer = observer }
}

// WithWaitFunc replaces the poll-interval wait. Used by tests to record the
// polling schedule without sleeping.
func WithWaitFunc(wait func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) { o.wait = wait }
}

// New instantiates an orchestrator.
func New(s *store.Store, sessions *session.Cache, client gen.Client, logger zerolog.Logger, options ...Option) *Orchestrator {
	o := &Orchestrator{
		store:     s,
		sessions:  sessions,
		client:    client,
		observer:  NopObserver{},
		logger:    logger,
		wait:      waitContext,
		inflight:  map[string]bool{},
		animation: AnimationIdle,
	}
	for _, option := range options {
		option(o)
	}
	return o
}

// Busy reports whether any turn is in flight. The UI uses it to disable
// concurrent submission.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.busy > 0
}

// Animation returns the current animation state.
func (o *Orchestrator) Animation() AnimationState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.animation
}

// RunTurn executes exactly one turn. A failed generation never escapes to
// the conversation state: the placeholder is overwritten with the apology
// text and the turn ends idle. The only error returned is ErrTurnInFlight,
// when a turn is already running for the same conversation.
func (o *Orchestrator) RunTurn(ctx context.Context, req *TurnRequest) error {
	if err := o.acquire(req.ConversationID); err != nil {
		return err
	}
	defer o.release(req.ConversationID)

	o.setAnimation(AnimationThinking)

	placeholder := types.NewModelPlaceholder()
	if req.PlaceholderID != "" {
		placeholder.ID = req.PlaceholderID
	}
	// History is frozen for the duration of the turn; every publish is
	// [history..., placeholder] so readers never observe a gap.
	history := req.History[:len(req.History):len(req.History)]
	publish := func(message *types.Message) {
		o.store.SetMessages(req.ConversationID, append(history, message))
		o.observer.ConversationUpdated(req.ConversationID)
	}
	publish(placeholder)

	result, err := o.dispatch(ctx, req, placeholder, publish)
	if err != nil {
		o.logger.Error().Err(err).
			Str("conversation_id", req.ConversationID).
			Str("mode", string(req.Mode)).
			Msg("turn failed")
		failed := placeholder.Clone()
		failed.Content = ApologyMessage
		publish(failed)
		o.observer.Notify(ApologyMessage)
		return nil
	}

	final := placeholder.Clone()
	final.Content = result.content
	final.Attachment = result.attachment
	final.Sources = result.sources
	publish(final)
	return nil
}

// dispatch routes the turn to its mode handler. The mode set is closed;
// every handler returns the uniform result shape.
func (o *Orchestrator) dispatch(ctx context.Context, req *TurnRequest, placeholder *types.Message, publish func(*types.Message)) (*turnResult, error) {
	switch req.Mode {
	case types.ModeDefault:
		return o.runStreaming(ctx, req, placeholder, publish, "")
	case types.ModeCode:
		return o.runStreaming(ctx, req, placeholder, publish, CodeSystemInstruction)
	case types.ModeImage:
		return o.runImage(ctx, req)
	case types.ModeVideo:
		return o.runVideo(ctx, req, placeholder, publish)
	case types.ModeDeepSearch:
		return o.runDeepSearch(ctx, req)
	default:
		return nil, errors.Errorf("unknown mode %q", req.Mode)
	}
}

// runStreaming handles default and code modes: a stateful session streams
// incremental text which rewrites the placeholder in place on every chunk.
func (o *Orchestrator) runStreaming(ctx context.Context, req *TurnRequest, placeholder *types.Message, publish func(*types.Message), systemInstruction string) (*turnResult, error) {
	// The session history excludes the triggering user message: the
	// prompt is sent through the session itself.
	sessionHistory := req.History
	if len(sessionHistory) > 0 {
		sessionHistory = sessionHistory[:len(sessionHistory)-1]
	}
	generationSession, err := o.sessions.GetOrCreate(ctx, req.ConversationID, sessionHistory, systemInstruction)
	if err != nil {
		return nil, errors.Wrap(err, "creating generation session")
	}

	o.setAnimation(AnimationSpeaking)
	stream, err := generationSession.StreamMessage(ctx, req.Prompt, req.Attachment)
	if err != nil {
		return nil, errors.Wrap(err, "starting stream")
	}
	defer stream.Close()

	var content strings.Builder
	for {
		event, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "receiving stream event")
		}
		content.WriteString(event.Token)
		current := placeholder.Clone()
		current.Content = content.String()
		publish(current)
	}
	return &turnResult{content: content.String()}, nil
}

// runImage handles image mode: a single one-shot generation call.
func (o *Orchestrator) runImage(ctx context.Context, req *TurnRequest) (*turnResult, error) {
	image, err := o.client.GenerateImage(ctx, req.Prompt)
	if err != nil {
		return nil, errors.Wrap(err, "generating image")
	}
	return &turnResult{attachment: image}, nil
}

// runDeepSearch handles deepsearch mode: one grounded-search call returning
// text plus sources.
func (o *Orchestrator) runDeepSearch(ctx context.Context, req *TurnRequest) (*turnResult, error) {
	grounded, err := o.client.GroundedSearch(ctx, req.Prompt)
	if err != nil {
		return nil, errors.Wrap(err, "grounded search")
	}
	return &turnResult{content: grounded.Text, sources: grounded.Sources}, nil
}

// runVideo handles video mode: start the job, long-poll it on the
// configured schedule, then resolve the payload.
func (o *Orchestrator) runVideo(ctx context.Context, req *TurnRequest, placeholder *types.Message, publish func(*types.Message)) (*turnResult, error) {
	status := func(text string) {
		current := placeholder.Clone()
		current.Content = text
		publish(current)
	}

	status(videoStatusStarting)
	job, err := o.client.StartVideoGeneration(ctx, req.Prompt)
	if err != nil {
		return nil, errors.Wrap(err, "starting video generation")
	}

	status(videoStatusCrafting)
	for pollIndex := 0; !job.Done(); pollIndex++ {
		interval := videoPollSchedule[min(pollIndex, len(videoPollSchedule)-1)]
		if err := o.wait(ctx, interval); err != nil {
			return nil, errors.Wrap(err, "waiting for poll interval")
		}
		job, err = o.client.PollVideoGeneration(ctx, job)
		if err != nil {
			return nil, errors.Wrap(err, "polling video generation")
		}
		status(videoStatusRendering)
	}

	status(videoStatusFinalizing)
	video, err := o.client.FetchVideo(ctx, job)
	if err != nil {
		return nil, errors.Wrap(err, "fetching video")
	}
	if video == nil {
		return nil, errVideoWithoutPayload
	}
	return &turnResult{attachment: video}, nil
}

// SetMode changes a conversation's generation mode and invalidates its
// cached session, whose system instruction no longer matches.
func (o *Orchestrator) SetMode(conversationID string, mode types.Mode) {
	o.sessions.Invalidate(conversationID)
	o.store.SetMode(conversationID, mode)
	o.observer.ConversationUpdated(conversationID)
}

// DeleteConversation removes a conversation and evicts its session.
func (o *Orchestrator) DeleteConversation(conversationID string) bool {
	o.sessions.Invalidate(conversationID)
	return o.store.DeleteConversation(conversationID)
}

func (o *Orchestrator) acquire(conversationID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inflight[conversationID] {
		return ErrTurnInFlight
	}
	o.inflight[conversationID] = true
	o.busy++
	return nil
}

func (o *Orchestrator) release(conversationID string) {
	o.mu.Lock()
	delete(o.inflight, conversationID)
	o.busy--
	o.mu.Unlock()
	o.setAnimation(AnimationIdle)
}

func (o *Orchestrator) setAnimation(state AnimationState) {
	o.mu.Lock()
	o.animation = state
	o.mu.Unlock()
	o.observer.AnimationChanged(state)
}

func waitContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
