package posts

import (
	"context"
	"testing"

	"mossboard/internal/database"
	"mossboard/internal/moderation"
	"mossboard/internal/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *database.MemoryStore) {
	t.Helper()
	store := database.NewMemoryStore()
	return NewService(store, moderation.AllowAll{}, zerolog.Nop()), store
}

func TestCreateAndGetPost(t *testing.T) {
	svc, _ := newTestService(t)
	authorID := uuid.New()

	post, err := svc.Create(context.Background(), "Title", "body", authorID)
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Title", got.Title)
	assert.Equal(t, authorID, got.AuthorID)

	_, err = svc.Get(context.Background(), uuid.New())
	assert.True(t, utils.IsErrorCode(err, utils.ErrNotFound))
}

func TestArchivePost(t *testing.T) {
	svc, _ := newTestService(t)
	authorID := uuid.New()

	post, err := svc.Create(context.Background(), "Title", "body", authorID)
	require.NoError(t, err)

	archived, err := svc.Archive(context.Background(), post.ID, authorID)
	require.NoError(t, err)
	assert.True(t, archived.Archived)

	// Archiving twice is a state conflict
	_, err = svc.Archive(context.Background(), post.ID, authorID)
	assert.True(t, utils.IsErrorCode(err, utils.ErrStateConflict))
}

func TestArchiveByNonAuthor(t *testing.T) {
	svc, store := newTestService(t)

	post, err := svc.Create(context.Background(), "Title", "body", uuid.New())
	require.NoError(t, err)

	_, err = svc.Archive(context.Background(), post.ID, uuid.New())
	assert.True(t, utils.IsErrorCode(err, utils.ErrForbidden))

	stored, err := store.GetPost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.False(t, stored.Archived)
}
