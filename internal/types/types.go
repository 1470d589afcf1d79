package types

import (
	"strings"

	"github.com/google/uuid"
)

// Role of a message author.
type Role string

const (
	// RoleUser identifies a message written by the user.
	RoleUser Role = "user"
	// RoleModel identifies a message produced by the model.
	RoleModel Role = "model"
)

// Mode selects the generation strategy for a conversation.
type Mode string

const (
	ModeDefault    Mode = "default"
	ModeCode       Mode = "code"
	ModeImage      Mode = "image"
	ModeVideo      Mode = "video"
	ModeDeepSearch Mode = "deepsearch"
)

// Modes lists every valid mode.
var Modes = []Mode{ModeDefault, ModeCode, ModeImage, ModeVideo, ModeDeepSearch}

// ParseMode parses a mode string.
func ParseMode(s string) (Mode, bool) {
	for _, mode := range Modes {
		if string(mode) == strings.ToLower(strings.TrimSpace(s)) {
			return mode, true
		}
	}
	return "", false
}

// Feedback given by the user on a model message.
type Feedback string

const (
	FeedbackNone     Feedback = ""
	FeedbackLiked    Feedback = "liked"
	FeedbackDisliked Feedback = "disliked"
)

// Attachment is an inline binary payload attached to a message.
// Attachments live in memory only; the store strips them from any
// durable snapshot.
type Attachment struct {
	Data     []byte `json:"data,omitempty"`
	MIMEType string `json:"mime_type"`
	Name     string `json:"name"`
}

// Source is a web citation attached to a grounded answer.
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// Message is a single entry in a conversation.
type Message struct {
	ID         string      `json:"id"`
	Role       Role        `json:"role"`
	Content    string      `json:"content"`
	Attachment *Attachment `json:"attachment,omitempty"`
	Sources    []*Source   `json:"sources,omitempty"`
	Feedback   Feedback    `json:"feedback,omitempty"`
}

// NewUserMessage instantiates a user message.
func NewUserMessage(content string, attachment *Attachment) *Message {
	return &Message{
		ID:         uuid.New().String(),
		Role:       RoleUser,
		Content:    content,
		Attachment: attachment,
	}
}

// NewModelPlaceholder instantiates an empty model message, used as the
// in-progress tail of a turn before any backend byte arrives.
func NewModelPlaceholder() *Message {
	return &Message{
		ID:   uuid.New().String(),
		Role: RoleModel,
	}
}

// Empty reports whether the message carries neither text nor attachment.
func (m *Message) Empty() bool {
	return strings.TrimSpace(m.Content) == "" && m.Attachment == nil
}

// Clone returns a shallow copy of the message. The attachment and sources
// are shared; they are never mutated after creation.
func (m *Message) Clone() *Message {
	clone := *m
	return &clone
}

// Conversation holds an ordered message sequence and its metadata.
type Conversation struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Mode              Mode       `json:"mode"`
	Messages          []*Message `json:"messages"`
	CreationTimestamp int64      `json:"creation_timestamp"`
	UpdateTimestamp   int64      `json:"update_timestamp"`
}

// Clone returns a copy of the conversation with a copied message slice.
// Individual messages are shared.
func (c *Conversation) Clone() *Conversation {
	clone := *c
	clone.Messages = make([]*Message, len(c.Messages))
	copy(clone.Messages, c.Messages)
	return &clone
}

// MessageIndex returns the index of the message with the given id, or -1.
func (c *Conversation) MessageIndex(messageID string) int {
	for i, message := range c.Messages {
		if message.ID == messageID {
			return i
		}
	}
	return -1
}
