package session

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexhq/apex/internal/gen"
	"github.com/apexhq/apex/internal/types"
)

type fakeSession struct{}

func (fakeSession) StreamMessage(ctx context.Context, prompt string, attachment *types.Attachment) (gen.Stream, error) {
	return nil, errors.New("not implemented")
}

type fakeClient struct {
	gen.Client

	calls           int
	err             error
	lastHistory     []*types.Message
	lastInstruction string
}

func (c *fakeClient) CreateSession(ctx context.Context, history []*types.Message, systemInstruction string) (gen.Session, error) {
	c.calls++
	c.lastHistory = history
	c.lastInstruction = systemInstruction
	if c.err != nil {
		return nil, c.err
	}
	return fakeSession{}, nil
}

func TestGetOrCreateCachesPerConversation(t *testing.T) {
	client := &fakeClient{}
	cache := NewCache(client, zerolog.Nop())

	first, err := cache.GetOrCreate(context.Background(), "c1", nil, "")
	require.NoError(t, err)
	second, err := cache.GetOrCreate(context.Background(), "c1", nil, "")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, client.calls)

	_, err = cache.GetOrCreate(context.Background(), "c2", nil, "")
	require.NoError(t, err)
	assert.Equal(t, 2, client.calls)
}

func TestGetOrCreateBindsDefaultInstruction(t *testing.T) {
	client := &fakeClient{}
	cache := NewCache(client, zerolog.Nop())

	_, err := cache.GetOrCreate(context.Background(), "c1", nil, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultSystemInstruction, client.lastInstruction)

	_, err = cache.GetOrCreate(context.Background(), "c2", nil, "custom instruction")
	require.NoError(t, err)
	assert.Equal(t, "custom instruction", client.lastInstruction)
}

func TestGetOrCreateFiltersEmptyModelMessages(t *testing.T) {
	client := &fakeClient{}
	cache := NewCache(client, zerolog.Nop())

	history := []*types.Message{
		{ID: "u1", Role: types.RoleUser, Content: "hello"},
		{ID: "m1", Role: types.RoleModel, Content: ""},
		{ID: "m2", Role: types.RoleModel, Content: "hi"},
		{ID: "u2", Role: types.RoleUser, Content: ""},
	}
	_, err := cache.GetOrCreate(context.Background(), "c1", history, "")
	require.NoError(t, err)

	require.Len(t, client.lastHistory, 3)
	assert.Equal(t, "u1", client.lastHistory[0].ID)
	assert.Equal(t, "m2", client.lastHistory[1].ID)
	// User messages pass through even when empty.
	assert.Equal(t, "u2", client.lastHistory[2].ID)
}

func TestGetOrCreateDoesNotCacheFailures(t *testing.T) {
	client := &fakeClient{err: errors.New("backend unavailable")}
	cache := NewCache(client, zerolog.Nop())

	_, err := cache.GetOrCreate(context.Background(), "c1", nil, "")
	require.Error(t, err)

	client.err = nil
	_, err = cache.GetOrCreate(context.Background(), "c1", nil, "")
	require.NoError(t, err)
	assert.Equal(t, 2, client.calls)
}

func TestInvalidateEvictsSession(t *testing.T) {
	client := &fakeClient{}
	cache := NewCache(client, zerolog.Nop())

	_, err := cache.GetOrCreate(context.Background(), "c1", nil, "")
	require.NoError(t, err)
	cache.Invalidate("c1")
	_, err = cache.GetOrCreate(context.Background(), "c1", nil, "")
	require.NoError(t, err)
	assert.Equal(t, 2, client.calls)

	// Invalidating an unknown conversation is harmless.
	cache.Invalidate("never-seen")
}
