package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexhq/apex/internal/types"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conversations.db")
	s := New(path, zerolog.Nop())
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestCreateConversationDefaults(t *testing.T) {
	s, _ := newTestStore(t)

	conversation := s.CreateConversation()
	require.NotEmpty(t, conversation.ID)
	assert.Equal(t, DefaultTitle, conversation.Title)
	assert.Equal(t, types.ModeDefault, conversation.Mode)
	assert.Empty(t, conversation.Messages)
	assert.NotZero(t, conversation.CreationTimestamp)
	assert.Equal(t, conversation.CreationTimestamp, conversation.UpdateTimestamp)
}

func TestCreateConversationInsertsAtFront(t *testing.T) {
	s, _ := newTestStore(t)

	first := s.CreateConversation()
	second := s.CreateConversation()

	conversations := s.ListConversations()
	require.Len(t, conversations, 2)
	assert.Equal(t, second.ID, conversations[0].ID)
	assert.Equal(t, first.ID, conversations[1].ID)
}

func TestGetConversationReturnsCopies(t *testing.T) {
	s, _ := newTestStore(t)
	conversation := s.CreateConversation()

	fetched, ok := s.GetConversation(conversation.ID)
	require.True(t, ok)
	fetched.Title = "mutated"
	fetched.Messages = append(fetched.Messages, &types.Message{ID: "x", Role: types.RoleUser, Content: "sneaky"})

	again, _ := s.GetConversation(conversation.ID)
	assert.Equal(t, DefaultTitle, again.Title)
	assert.Empty(t, again.Messages)
}

func TestGetConversationUnknownID(t *testing.T) {
	s, _ := newTestStore(t)
	_, ok := s.GetConversation("nope")
	assert.False(t, ok)
}

func TestUpdateConversationMergesMaskedFieldsOnly(t *testing.T) {
	s, _ := newTestStore(t)
	conversation := s.CreateConversation()

	s.UpdateConversation(&UpdateConversationRequest{
		Conversation: &types.Conversation{ID: conversation.ID, Title: "Renamed", Mode: types.ModeCode},
		UpdateMask:   []string{"title"},
	})

	updated, _ := s.GetConversation(conversation.ID)
	assert.Equal(t, "Renamed", updated.Title)
	// Mode was not in the mask and must be untouched.
	assert.Equal(t, types.ModeDefault, updated.Mode)
	assert.GreaterOrEqual(t, updated.UpdateTimestamp, conversation.CreationTimestamp)
}

func TestUpdateConversationUnknownIDIsNoOp(t *testing.T) {
	s, _ := newTestStore(t)
	s.UpdateConversation(&UpdateConversationRequest{
		Conversation: &types.Conversation{ID: "missing", Title: "ghost"},
		UpdateMask:   []string{"title"},
	})
	assert.Empty(t, s.ListConversations())
}

func TestSetModeAndSetMessages(t *testing.T) {
	s, _ := newTestStore(t)
	conversation := s.CreateConversation()

	s.SetMode(conversation.ID, types.ModeVideo)
	s.SetMessages(conversation.ID, []*types.Message{
		{ID: "u1", Role: types.RoleUser, Content: "hello"},
	})

	updated, _ := s.GetConversation(conversation.ID)
	assert.Equal(t, types.ModeVideo, updated.Mode)
	require.Len(t, updated.Messages, 1)
	assert.Equal(t, "hello", updated.Messages[0].Content)
}

func TestToggleFeedback(t *testing.T) {
	s, _ := newTestStore(t)
	conversation := s.CreateConversation()
	s.SetMessages(conversation.ID, []*types.Message{
		{ID: "m1", Role: types.RoleModel, Content: "answer"},
	})

	s.ToggleFeedback(conversation.ID, "m1", types.FeedbackLiked)
	updated, _ := s.GetConversation(conversation.ID)
	assert.Equal(t, types.FeedbackLiked, updated.Messages[0].Feedback)

	// Switching to the other value replaces it.
	s.ToggleFeedback(conversation.ID, "m1", types.FeedbackDisliked)
	updated, _ = s.GetConversation(conversation.ID)
	assert.Equal(t, types.FeedbackDisliked, updated.Messages[0].Feedback)

	// Toggling the same value clears it.
	s.ToggleFeedback(conversation.ID, "m1", types.FeedbackDisliked)
	updated, _ = s.GetConversation(conversation.ID)
	assert.Equal(t, types.FeedbackNone, updated.Messages[0].Feedback)

	// Unknown targets change nothing.
	s.ToggleFeedback(conversation.ID, "missing", types.FeedbackLiked)
	s.ToggleFeedback("missing", "m1", types.FeedbackLiked)
}

func TestDeleteConversation(t *testing.T) {
	s, _ := newTestStore(t)
	conversation := s.CreateConversation()

	require.True(t, s.DeleteConversation(conversation.ID))
	_, ok := s.GetConversation(conversation.ID)
	assert.False(t, ok)
	assert.Empty(t, s.ListConversations())

	assert.False(t, s.DeleteConversation(conversation.ID))
}

func TestReloadRestoresConversationsWithoutAttachments(t *testing.T) {
	s, path := newTestStore(t)
	conversation := s.CreateConversation()
	s.SetTitle(conversation.ID, "Cats")
	s.SetMode(conversation.ID, types.ModeImage)
	s.SetMessages(conversation.ID, []*types.Message{
		{ID: "u1", Role: types.RoleUser, Content: "draw a cat"},
		{
			ID:      "m1",
			Role:    types.RoleModel,
			Content: "",
			Attachment: &types.Attachment{
				Data:     []byte{0xDE, 0xAD},
				MIMEType: "image/png",
				Name:     "draw a cat.png",
			},
			Sources:  []*types.Source{{URI: "https://example.com", Title: "Example"}},
			Feedback: types.FeedbackLiked,
		},
	})
	require.NoError(t, s.Close())

	reloaded := New(path, zerolog.Nop())
	defer reloaded.Close()

	restored, ok := reloaded.GetConversation(conversation.ID)
	require.True(t, ok)
	assert.Equal(t, "Cats", restored.Title)
	assert.Equal(t, types.ModeImage, restored.Mode)
	require.Len(t, restored.Messages, 2)

	// Text, sources and feedback survive the snapshot; attachment bytes do
	// not.
	assert.Equal(t, "draw a cat", restored.Messages[0].Content)
	model := restored.Messages[1]
	assert.Nil(t, model.Attachment)
	require.Len(t, model.Sources, 1)
	assert.Equal(t, "https://example.com", model.Sources[0].URI)
	assert.Equal(t, types.FeedbackLiked, model.Feedback)
}

func TestReloadOrdersNewestFirst(t *testing.T) {
	s, path := newTestStore(t)
	first := s.CreateConversation()
	time.Sleep(time.Millisecond)
	second := s.CreateConversation()
	require.NoError(t, s.Close())

	reloaded := New(path, zerolog.Nop())
	defer reloaded.Close()

	conversations := reloaded.ListConversations()
	require.Len(t, conversations, 2)
	assert.Equal(t, second.ID, conversations[0].ID)
	assert.Equal(t, first.ID, conversations[1].ID)
}

func TestBrokenDatabasePathFallsBackToMemory(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing", "nested", "conversations.db"), zerolog.Nop())
	defer s.Close()

	conversation := s.CreateConversation()
	s.SetTitle(conversation.ID, "Ephemeral")

	updated, ok := s.GetConversation(conversation.ID)
	require.True(t, ok)
	assert.Equal(t, "Ephemeral", updated.Title)
}
