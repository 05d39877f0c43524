package actors

import (
	stdctx "context"
	"testing"
	"time"

	"mossboard/internal/comments"
	"mossboard/internal/database"
	"mossboard/internal/models"
	"mossboard/internal/moderation"
	"mossboard/internal/utils"
	"mossboard/internal/voting"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spawnCommentActor(t *testing.T, store database.Adapter) (*actor.ActorSystem, *actor.PID) {
	t.Helper()

	log := zerolog.Nop()
	metrics := utils.NewMetricsCollector()
	guard := moderation.AllowAll{}
	svc := comments.NewService(store, guard, metrics, log)
	voteSvc := voting.NewService(store, guard, metrics, log)
	tree := comments.NewTreeBuilder(store, voteSvc, comments.NewUserDirectory(store), log)

	system := actor.NewActorSystem()
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewCommentActor(svc, tree, log)
	})
	return system, system.Root.Spawn(props)
}

func TestCommentActor(t *testing.T) {
	store := database.NewMemoryStore()
	system, pid := spawnCommentActor(t, store)

	authorID := uuid.New()
	author := &models.User{ID: authorID, Username: "fern", Email: "fern@example.com", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, store.CreateUser(stdctx.Background(), author))

	post, err := models.NewPost("Morning update", "It rained.", authorID)
	require.NoError(t, err)
	require.NoError(t, store.CreatePost(stdctx.Background(), post))

	// Create a root comment
	createMsg := &CreateCommentMsg{
		Body:     "Test comment",
		AuthorID: authorID,
		PostID:   post.ID,
	}

	future := system.Root.RequestFuture(pid, createMsg, 5*time.Second)
	result, err := future.Result()
	require.NoError(t, err)

	comment, ok := result.(*models.Comment)
	require.True(t, ok, "unexpected response: %+v", result)
	assert.Equal(t, "Test comment", comment.Body)
	assert.Equal(t, authorID, comment.AuthorID)
	assert.Equal(t, 0, comment.Depth)

	// Edit it
	editMsg := &EditCommentMsg{
		CommentID:   comment.ID,
		RequesterID: authorID,
		Body:        "Updated comment",
	}

	future = system.Root.RequestFuture(pid, editMsg, 5*time.Second)
	result, err = future.Result()
	require.NoError(t, err)

	updated, ok := result.(*models.Comment)
	require.True(t, ok, "unexpected response: %+v", result)
	assert.Equal(t, "Updated comment", updated.Body)

	// Reply to it
	replyMsg := &CreateCommentMsg{
		Body:     "Reply comment",
		AuthorID: authorID,
		PostID:   post.ID,
		ParentID: &comment.ID,
	}

	future = system.Root.RequestFuture(pid, replyMsg, 5*time.Second)
	result, err = future.Result()
	require.NoError(t, err)

	reply, ok := result.(*models.Comment)
	require.True(t, ok, "unexpected response: %+v", result)
	assert.Equal(t, comment.ID, *reply.ParentID)
	assert.Equal(t, 1, reply.Depth)

	// Fetch the tree
	treeMsg := &GetCommentTreeMsg{PostID: post.ID}

	future = system.Root.RequestFuture(pid, treeMsg, 5*time.Second)
	result, err = future.Result()
	require.NoError(t, err)

	views, ok := result.([]*comments.CommentView)
	require.True(t, ok, "unexpected response: %+v", result)
	require.Len(t, views, 1)
	assert.Equal(t, comment.ID, views[0].CommentID)
	require.Len(t, views[0].Children, 1)
	assert.Equal(t, reply.ID, views[0].Children[0].CommentID)
}

func TestCommentActorDeleteRedactsNode(t *testing.T) {
	store := database.NewMemoryStore()
	system, pid := spawnCommentActor(t, store)

	authorID := uuid.New()
	author := &models.User{ID: authorID, Username: "fern", Email: "fern@example.com", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, store.CreateUser(stdctx.Background(), author))

	post, err := models.NewPost("Morning update", "It rained.", authorID)
	require.NoError(t, err)
	require.NoError(t, store.CreatePost(stdctx.Background(), post))

	future := system.Root.RequestFuture(pid, &CreateCommentMsg{
		Body:     "doomed",
		AuthorID: authorID,
		PostID:   post.ID,
	}, 5*time.Second)
	result, err := future.Result()
	require.NoError(t, err)
	comment := result.(*models.Comment)

	// Someone else cannot delete it
	future = system.Root.RequestFuture(pid, &DeleteCommentMsg{
		CommentID:   comment.ID,
		RequesterID: uuid.New(),
	}, 5*time.Second)
	result, err = future.Result()
	require.NoError(t, err)
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok, "unexpected response: %+v", result)
	assert.Equal(t, utils.ErrForbidden, appErr.Code)

	// The author can
	future = system.Root.RequestFuture(pid, &DeleteCommentMsg{
		CommentID:   comment.ID,
		RequesterID: authorID,
	}, 5*time.Second)
	result, err = future.Result()
	require.NoError(t, err)
	deleted, ok := result.(*models.Comment)
	require.True(t, ok, "unexpected response: %+v", result)
	assert.Equal(t, models.CommentDeleted, deleted.Status)

	// The node stays in the tree with a redacted body
	future = system.Root.RequestFuture(pid, &GetCommentTreeMsg{PostID: post.ID}, 5*time.Second)
	result, err = future.Result()
	require.NoError(t, err)
	views := result.([]*comments.CommentView)
	require.Len(t, views, 1)
	assert.True(t, views[0].Deleted)
	assert.Equal(t, "[deleted]", views[0].Body)
}
