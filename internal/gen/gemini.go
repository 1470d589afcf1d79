package gen

import (
	"context"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/genai"

	"github.com/apexhq/apex/internal/types"
)

// Models names the backend models used for each capability.
type Models struct {
	Chat  string
	Image string
	Video string
	Title string
}

// DefaultModels returns the stock model selection.
func DefaultModels() Models {
	return Models{
		Chat:  "gemini-2.5-flash",
		Image: "imagen-4.0-generate-001",
		Video: "veo-2.0-generate-001",
		Title: "gemini-2.5-flash",
	}
}

// GeminiClient implements Client on top of the Gemini API.
type GeminiClient struct {
	client *genai.Client
	models Models
}

// NewGeminiClient instantiates and returns a new Gemini-backed client.
func NewGeminiClient(ctx context.Context, apiKey string, models Models) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating genai client")
	}
	return &GeminiClient{client: client, models: models}, nil
}

// CreateSession builds a stateful chat from the given history and system
// instruction.
func (c *GeminiClient) CreateSession(ctx context.Context, history []*types.Message, systemInstruction string) (Session, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	}
	chat, err := c.client.Chats.Create(ctx, c.models.Chat, config, contentsFromMessages(history))
	if err != nil {
		return nil, errors.Wrap(err, "creating chat session")
	}
	return &geminiSession{chat: chat}, nil
}

type geminiSession struct {
	chat *genai.Chat
}

func (s *geminiSession) StreamMessage(ctx context.Context, prompt string, attachment *types.Attachment) (Stream, error) {
	parts := promptParts(prompt, attachment)
	if len(parts) == 0 {
		return nil, errors.New("empty prompt")
	}
	next, stop := iter.Pull2(s.chat.SendMessageStream(ctx, parts...))
	return &geminiStream{next: next, stop: stop}, nil
}

type geminiStream struct {
	next func() (*genai.GenerateContentResponse, error, bool)
	stop func()
}

func (s *geminiStream) Recv() (*StreamEvent, error) {
	response, err, ok := s.next()
	if !ok {
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}
	return &StreamEvent{Token: response.Text()}, nil
}

func (s *geminiStream) Close() { s.stop() }

// GenerateImage runs a one-shot image generation and returns the inline
// payload as an attachment.
func (c *GeminiClient) GenerateImage(ctx context.Context, prompt string) (*types.Attachment, error) {
	response, err := c.client.Models.GenerateImages(ctx, c.models.Image, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: "image/png",
		AspectRatio:    "1:1",
	})
	if err != nil {
		return nil, errors.Wrap(err, "generating image")
	}
	if len(response.GeneratedImages) == 0 || response.GeneratedImages[0].Image == nil {
		return nil, errors.New("image generation returned no image")
	}
	return &types.Attachment{
		Data:     response.GeneratedImages[0].Image.ImageBytes,
		MIMEType: "image/png",
		Name:     attachmentName(prompt, ".png"),
	}, nil
}

// GroundedSearch runs a one-shot generation with the Google Search tool and
// extracts the grounding sources.
func (c *GeminiClient) GroundedSearch(ctx context.Context, prompt string) (*GroundedResult, error) {
	response, err := c.client.Models.GenerateContent(ctx, c.models.Chat, genai.Text(prompt), &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "grounded generation")
	}
	result := &GroundedResult{Text: response.Text()}
	if len(response.Candidates) == 0 || response.Candidates[0].GroundingMetadata == nil {
		return result, nil
	}
	for _, chunk := range response.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		result.Sources = append(result.Sources, &types.Source{
			URI:   chunk.Web.URI,
			Title: chunk.Web.Title,
		})
	}
	return result, nil
}

type geminiVideoJob struct {
	operation *genai.GenerateVideosOperation
}

func (j *geminiVideoJob) Done() bool { return j.operation.Done }

// StartVideoGeneration kicks off an asynchronous video generation job.
func (c *GeminiClient) StartVideoGeneration(ctx context.Context, prompt string) (VideoJob, error) {
	operation, err := c.client.Models.GenerateVideos(ctx, c.models.Video, prompt, nil, &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
	})
	if err != nil {
		return nil, errors.Wrap(err, "starting video generation")
	}
	return &geminiVideoJob{operation: operation}, nil
}

// PollVideoGeneration refreshes the job's status.
func (c *GeminiClient) PollVideoGeneration(ctx context.Context, job VideoJob) (VideoJob, error) {
	geminiJob, ok := job.(*geminiVideoJob)
	if !ok {
		return nil, errors.Errorf("unexpected video job type %T", job)
	}
	operation, err := c.client.Operations.GetVideosOperation(ctx, geminiJob.operation, nil)
	if err != nil {
		return nil, errors.Wrap(err, "polling video generation")
	}
	return &geminiVideoJob{operation: operation}, nil
}

// FetchVideo downloads a completed job's video payload.
func (c *GeminiClient) FetchVideo(ctx context.Context, job VideoJob) (*types.Attachment, error) {
	geminiJob, ok := job.(*geminiVideoJob)
	if !ok {
		return nil, errors.Errorf("unexpected video job type %T", job)
	}
	operation := geminiJob.operation
	if operation.Response == nil || len(operation.Response.GeneratedVideos) == 0 || operation.Response.GeneratedVideos[0].Video == nil {
		return nil, nil
	}
	video := operation.Response.GeneratedVideos[0].Video
	data, err := c.client.Files.Download(ctx, video, nil)
	if err != nil {
		return nil, errors.Wrap(err, "downloading video")
	}
	if len(data) == 0 {
		data = video.VideoBytes
	}
	mimeType := video.MIMEType
	if mimeType == "" {
		mimeType = "video/mp4"
	}
	return &types.Attachment{
		Data:     data,
		MIMEType: mimeType,
		Name:     "generated-video.mp4",
	}, nil
}

// GenerateTitle summarizes the first prompt of a conversation into a short
// title.
func (c *GeminiClient) GenerateTitle(ctx context.Context, prompt string) (string, error) {
	request := fmt.Sprintf("Generate a short, concise title (4 words max) for a conversation that starts with this prompt: %q", prompt)
	response, err := c.client.Models.GenerateContent(ctx, c.models.Title, genai.Text(request), nil)
	if err != nil {
		return "", errors.Wrap(err, "generating title")
	}
	title := strings.ReplaceAll(strings.TrimSpace(response.Text()), `"`, "")
	if title == "" {
		return "", errors.New("title generation returned no text")
	}
	return title, nil
}

// contentsFromMessages converts a message history into role-tagged contents.
func contentsFromMessages(messages []*types.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, message := range messages {
		var parts []*genai.Part
		if message.Attachment != nil {
			parts = append(parts, genai.NewPartFromBytes(message.Attachment.Data, message.Attachment.MIMEType))
		}
		if message.Content != "" {
			parts = append(parts, genai.NewPartFromText(message.Content))
		}
		if len(parts) == 0 {
			continue
		}
		var role genai.Role = genai.RoleUser
		if message.Role == types.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromParts(parts, role))
	}
	return contents
}

// promptParts builds the parts of an outgoing prompt.
func promptParts(prompt string, attachment *types.Attachment) []genai.Part {
	var parts []genai.Part
	if attachment != nil {
		parts = append(parts, genai.Part{InlineData: &genai.Blob{
			Data:     attachment.Data,
			MIMEType: attachment.MIMEType,
		}})
	}
	if prompt != "" {
		parts = append(parts, genai.Part{Text: prompt})
	}
	return parts
}

// attachmentName derives a display name from a prompt, truncated on rune
// boundaries so multi-byte prompts stay valid UTF-8.
func attachmentName(prompt, extension string) string {
	name := strings.TrimSpace(prompt)
	if runes := []rune(name); len(runes) > 20 {
		name = string(runes[:20])
	}
	if name == "" {
		name = "generated"
	}
	return name + extension
}
