package voting

import (
	"context"
	"sync"
	"testing"
	"time"

	"mossboard/internal/database"
	"mossboard/internal/models"
	"mossboard/internal/moderation"
	"mossboard/internal/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore injects version conflicts into the first N saves so retry
// behavior can be exercised deterministically.
type flakyStore struct {
	database.Adapter
	conflicts int
}

func (f *flakyStore) InVoteTx(ctx context.Context, fn func(database.VoteTx) error) error {
	return f.Adapter.InVoteTx(ctx, func(tx database.VoteTx) error {
		return fn(&flakyTx{VoteTx: tx, store: f})
	})
}

type flakyTx struct {
	database.VoteTx
	store *flakyStore
}

func (t *flakyTx) SaveVotable(ctx context.Context, v models.Votable) error {
	if t.store.conflicts > 0 {
		t.store.conflicts--
		return utils.NewVersionConflictError(v.Ref())
	}
	return t.VoteTx.SaveVotable(ctx, v)
}

func newService(t *testing.T, store database.Adapter) *Service {
	t.Helper()
	return NewService(store, moderation.AllowAll{}, utils.NewMetricsCollector(), zerolog.Nop())
}

func seedPost(t *testing.T, store database.Adapter) *models.Post {
	t.Helper()
	post, err := models.NewPost("Weather thread", "Still humid.", uuid.New())
	require.NoError(t, err)
	require.NoError(t, store.CreatePost(context.Background(), post))
	return post
}

func seedComment(t *testing.T, store database.Adapter, post *models.Post) *models.Comment {
	t.Helper()
	comment, err := models.NewRootComment(post.ID, uuid.New(), "a comment")
	require.NoError(t, err)
	require.NoError(t, store.CreateComment(context.Background(), comment))
	return comment
}

func TestUpvoteThenSwitchToDownvote(t *testing.T) {
	store := database.NewMemoryStore()
	svc := newService(t, store)
	post := seedPost(t, store)
	voterID := uuid.New()
	ref := models.PostRef(post.ID)

	out, err := svc.Upvote(context.Background(), ref, voterID)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Previous)
	assert.Equal(t, 1, out.Current)
	assert.Equal(t, 1, out.Upvotes)
	assert.Equal(t, 0, out.Downvotes)
	assert.Equal(t, 1, out.Score)
	assert.True(t, out.Changed)

	// Switching direction replaces the record and moves both counters
	out, err = svc.Downvote(context.Background(), ref, voterID)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Previous)
	assert.Equal(t, -1, out.Current)
	assert.Equal(t, 0, out.Upvotes)
	assert.Equal(t, 1, out.Downvotes)
	assert.Equal(t, -1, out.Score)

	// Exactly one vote record remains
	up, down, err := store.CountVotes(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, 0, up)
	assert.Equal(t, 1, down)
}

func TestRepeatUpvoteTogglesOff(t *testing.T) {
	store := database.NewMemoryStore()
	svc := newService(t, store)
	post := seedPost(t, store)
	voterID := uuid.New()
	ref := models.PostRef(post.ID)

	_, err := svc.Upvote(context.Background(), ref, voterID)
	require.NoError(t, err)

	out, err := svc.Upvote(context.Background(), ref, voterID)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Previous)
	assert.Equal(t, 0, out.Current)
	assert.Equal(t, 0, out.Upvotes)
	assert.Equal(t, 0, out.Score)
	assert.True(t, out.Changed)

	vote, err := store.FindVote(context.Background(), ref, voterID)
	require.NoError(t, err)
	assert.Nil(t, vote)
}

func TestCancelWithoutVoteIsIdempotent(t *testing.T) {
	store := database.NewMemoryStore()
	svc := newService(t, store)
	post := seedPost(t, store)
	ref := models.PostRef(post.ID)

	before, err := store.GetPost(context.Background(), post.ID)
	require.NoError(t, err)

	out, err := svc.CancelVote(context.Background(), ref, uuid.New())
	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.Equal(t, 0, out.Previous)
	assert.Equal(t, 0, out.Current)

	// A no-op cancel writes nothing, not even a version bump
	after, err := store.GetPost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Version, after.Version)
}

func TestVoteOnCommentTarget(t *testing.T) {
	store := database.NewMemoryStore()
	svc := newService(t, store)
	post := seedPost(t, store)
	comment := seedComment(t, store, post)
	ref := models.CommentRef(comment.ID)

	out, err := svc.Downvote(context.Background(), ref, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 1, out.Downvotes)
	assert.Equal(t, -1, out.Score)

	stored, err := store.GetComment(context.Background(), comment.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Downvotes)

	// Post counters are untouched
	storedPost, err := store.GetPost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, storedPost.Downvotes)
}

func TestVoteValidation(t *testing.T) {
	store := database.NewMemoryStore()
	svc := newService(t, store)
	post := seedPost(t, store)

	_, err := svc.Upvote(context.Background(), models.PostRef(post.ID), uuid.Nil)
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))

	_, err = svc.Upvote(context.Background(), models.PostRef(uuid.Nil), uuid.New())
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))

	_, err = svc.Upvote(context.Background(), models.TargetRef{Kind: "board", ID: uuid.New()}, uuid.New())
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))

	_, err = svc.Upvote(context.Background(), models.PostRef(uuid.New()), uuid.New())
	assert.True(t, utils.IsErrorCode(err, utils.ErrNotFound))
}

func TestVoteOnDeletedCommentRejected(t *testing.T) {
	store := database.NewMemoryStore()
	svc := newService(t, store)
	post := seedPost(t, store)
	comment := seedComment(t, store, post)
	require.NoError(t, comment.SoftDelete())
	require.NoError(t, store.UpdateComment(context.Background(), comment))

	_, err := svc.Upvote(context.Background(), models.CommentRef(comment.ID), uuid.New())
	assert.True(t, utils.IsErrorCode(err, utils.ErrStateConflict))
}

func TestVoteOnArchivedPostRejected(t *testing.T) {
	store := database.NewMemoryStore()
	svc := newService(t, store)
	post := seedPost(t, store)
	require.NoError(t, post.Archive())
	require.NoError(t, store.UpdatePost(context.Background(), post))

	_, err := svc.Upvote(context.Background(), models.PostRef(post.ID), uuid.New())
	assert.True(t, utils.IsErrorCode(err, utils.ErrStateConflict))
}

func TestBannedVoterRejected(t *testing.T) {
	store := database.NewMemoryStore()
	voterID := uuid.New()
	now := time.Now()
	require.NoError(t, store.CreateUser(context.Background(), &models.User{
		ID: voterID, Username: "troll", Email: "troll@example.com",
		Banned: true, CreatedAt: now, UpdatedAt: now,
	}))

	svc := NewService(store, moderation.NewBanGuard(store), utils.NewMetricsCollector(), zerolog.Nop())
	post := seedPost(t, store)

	_, err := svc.Upvote(context.Background(), models.PostRef(post.ID), voterID)
	assert.True(t, utils.IsErrorCode(err, utils.ErrForbidden))

	up, down, err := store.CountVotes(context.Background(), models.PostRef(post.ID))
	require.NoError(t, err)
	assert.Equal(t, 0, up+down)
}

func TestVoteRetriesAfterVersionConflict(t *testing.T) {
	inner := database.NewMemoryStore()
	store := &flakyStore{Adapter: inner, conflicts: 2}
	svc := newService(t, store)
	post := seedPost(t, inner)

	metricsBefore := svc.metrics.Snapshot()
	out, err := svc.Upvote(context.Background(), models.PostRef(post.ID), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 1, out.Upvotes)

	// Only one vote landed despite the retries
	up, down, err := inner.CountVotes(context.Background(), models.PostRef(post.ID))
	require.NoError(t, err)
	assert.Equal(t, 1, up)
	assert.Equal(t, 0, down)

	metricsAfter := svc.metrics.Snapshot()
	assert.Equal(t, metricsBefore.Conflicts+2, metricsAfter.Conflicts)
}

func TestVoteRetriesExhausted(t *testing.T) {
	inner := database.NewMemoryStore()
	store := &flakyStore{Adapter: inner, conflicts: 10}
	svc := newService(t, store)
	post := seedPost(t, inner)

	_, err := svc.Upvote(context.Background(), models.PostRef(post.ID), uuid.New())
	require.Error(t, err)
	assert.True(t, utils.IsErrorCode(err, utils.ErrRetriesExhausted))

	// Nothing committed
	up, down, countErr := inner.CountVotes(context.Background(), models.PostRef(post.ID))
	require.NoError(t, countErr)
	assert.Equal(t, 0, up+down)
}

func TestVoterState(t *testing.T) {
	store := database.NewMemoryStore()
	svc := newService(t, store)
	postA := seedPost(t, store)
	postB := seedPost(t, store)
	postC := seedPost(t, store)
	voterID := uuid.New()

	_, err := svc.Upvote(context.Background(), models.PostRef(postA.ID), voterID)
	require.NoError(t, err)
	_, err = svc.Downvote(context.Background(), models.PostRef(postB.ID), voterID)
	require.NoError(t, err)

	ids := []uuid.UUID{postA.ID, postB.ID, postC.ID}
	state, err := svc.VoterState(context.Background(), models.PostTarget, ids, voterID)
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]int{postA.ID: 1, postB.ID: -1}, state)

	// Anonymous viewers get an empty map without touching the store
	state, err = svc.VoterState(context.Background(), models.PostTarget, ids, uuid.Nil)
	require.NoError(t, err)
	assert.Empty(t, state)
}

func TestMyVote(t *testing.T) {
	store := database.NewMemoryStore()
	svc := newService(t, store)
	post := seedPost(t, store)
	voterID := uuid.New()
	ref := models.PostRef(post.ID)

	value, err := svc.MyVote(context.Background(), ref, voterID)
	require.NoError(t, err)
	assert.Equal(t, 0, value)

	_, err = svc.Downvote(context.Background(), ref, voterID)
	require.NoError(t, err)

	value, err = svc.MyVote(context.Background(), ref, voterID)
	require.NoError(t, err)
	assert.Equal(t, -1, value)
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		current int
		action  models.VoteAction
		want    int
	}{
		{0, models.ActionUpvote, 1},
		{1, models.ActionUpvote, 0},
		{-1, models.ActionUpvote, 1},
		{0, models.ActionDown, -1},
		{-1, models.ActionDown, 0},
		{1, models.ActionDown, -1},
		{0, models.ActionCancel, 0},
		{1, models.ActionCancel, 0},
		{-1, models.ActionCancel, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, transition(tc.current, tc.action),
			"transition(%d, %s)", tc.current, tc.action)
	}
}

func TestOpposingVotersAccumulate(t *testing.T) {
	store := database.NewMemoryStore()
	svc := newService(t, store)
	post := seedPost(t, store)

	alice := uuid.New()
	bob := uuid.New()

	_, err := svc.Upvote(context.Background(), models.PostRef(post.ID), alice)
	require.NoError(t, err)
	out, err := svc.Downvote(context.Background(), models.PostRef(post.ID), bob)
	require.NoError(t, err)

	assert.Equal(t, 1, out.Upvotes)
	assert.Equal(t, 1, out.Downvotes)
	assert.Equal(t, 0, out.Score)

	up, down, err := store.CountVotes(context.Background(), models.PostRef(post.ID))
	require.NoError(t, err)
	assert.Equal(t, 1, up)
	assert.Equal(t, 1, down)

	mine, err := svc.MyVote(context.Background(), models.PostRef(post.ID), alice)
	require.NoError(t, err)
	assert.Equal(t, models.VoteValueUp, mine)
	mine, err = svc.MyVote(context.Background(), models.PostRef(post.ID), bob)
	require.NoError(t, err)
	assert.Equal(t, models.VoteValueDown, mine)
}

func TestConcurrentUpvotesAllLand(t *testing.T) {
	store := database.NewMemoryStore()
	svc := newService(t, store)
	post := seedPost(t, store)

	const voters = 32
	var wg sync.WaitGroup
	errs := make(chan error, voters)
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Upvote(context.Background(), models.PostRef(post.ID), uuid.New())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := store.GetPost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, voters, stored.Upvotes)
	assert.Equal(t, 0, stored.Downvotes)
	assert.Equal(t, voters, stored.Score())

	up, down, err := store.CountVotes(context.Background(), models.PostRef(post.ID))
	require.NoError(t, err)
	assert.Equal(t, voters, up)
	assert.Equal(t, 0, down)
}
