package gen

import (
	"context"

	"github.com/apexhq/apex/internal/types"
)

// StreamEvent is one increment of a streamed text generation.
type StreamEvent struct {
	Token string
}

// Stream is a lazy, finite sequence of generation increments. Recv returns
// io.EOF when the stream is exhausted.
type Stream interface {
	Recv() (*StreamEvent, error)
	Close()
}

// Session is a stateful backend-side conversational context bound to one
// conversation. It accumulates turn history internally.
type Session interface {
	// StreamMessage sends one prompt (with an optional inline attachment)
	// and returns the stream of response tokens.
	StreamMessage(ctx context.Context, prompt string, attachment *types.Attachment) (Stream, error)
}

// GroundedResult is the outcome of a web-grounded generation.
type GroundedResult struct {
	Text    string
	Sources []*types.Source
}

// VideoJob is an opaque handle on an asynchronous video generation job.
type VideoJob interface {
	Done() bool
}

// Client exposes the generation backend's capabilities.
type Client interface {
	// CreateSession builds a stateful text session from a role-tagged
	// history and a system instruction.
	CreateSession(ctx context.Context, history []*types.Message, systemInstruction string) (Session, error)
	// GenerateImage runs a one-shot image generation.
	GenerateImage(ctx context.Context, prompt string) (*types.Attachment, error)
	// GroundedSearch runs a one-shot web-grounded generation.
	GroundedSearch(ctx context.Context, prompt string) (*GroundedResult, error)
	// StartVideoGeneration kicks off an asynchronous video job.
	StartVideoGeneration(ctx context.Context, prompt string) (VideoJob, error)
	// PollVideoGeneration refreshes a job's status. Idempotent.
	PollVideoGeneration(ctx context.Context, job VideoJob) (VideoJob, error)
	// FetchVideo resolves a completed job's payload. Returns (nil, nil)
	// when the job reports done but carries no resolvable video.
	FetchVideo(ctx context.Context, job VideoJob) (*types.Attachment, error)
	// GenerateTitle summarizes a first prompt into a short title.
	GenerateTitle(ctx context.Context, prompt string) (string, error)
}
