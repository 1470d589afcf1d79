package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	for _, mode := range Modes {
		parsed, ok := ParseMode(string(mode))
		require.True(t, ok)
		assert.Equal(t, mode, parsed)
	}

	parsed, ok := ParseMode("  DeepSearch ")
	require.True(t, ok)
	assert.Equal(t, ModeDeepSearch, parsed)

	_, ok = ParseMode("turbo")
	assert.False(t, ok)
}

func TestMessageEmpty(t *testing.T) {
	assert.True(t, NewModelPlaceholder().Empty())
	assert.True(t, (&Message{Role: RoleModel, Content: "  \n"}).Empty())
	assert.False(t, (&Message{Role: RoleModel, Content: "hi"}).Empty())
	assert.False(t, (&Message{Role: RoleModel, Attachment: &Attachment{MIMEType: "image/png"}}).Empty())
}

func TestMessageClone(t *testing.T) {
	message := NewUserMessage("hello", nil)
	clone := message.Clone()
	clone.Content = "changed"
	assert.Equal(t, "hello", message.Content)
	assert.Equal(t, message.ID, clone.ID)
}

func TestConversationCloneCopiesMessageSlice(t *testing.T) {
	conversation := &Conversation{
		ID:       "c1",
		Messages: []*Message{{ID: "m1", Role: RoleUser, Content: "hi"}},
	}
	clone := conversation.Clone()
	clone.Messages = append(clone.Messages, &Message{ID: "m2", Role: RoleModel})
	assert.Len(t, conversation.Messages, 1)
}

func TestMessageIndex(t *testing.T) {
	conversation := &Conversation{
		Messages: []*Message{{ID: "a"}, {ID: "b"}},
	}
	assert.Equal(t, 0, conversation.MessageIndex("a"))
	assert.Equal(t, 1, conversation.MessageIndex("b"))
	assert.Equal(t, -1, conversation.MessageIndex("c"))
}
