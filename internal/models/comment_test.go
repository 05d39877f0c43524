package models

import (
	"strings"
	"testing"

	"mossboard/internal/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootComment(t *testing.T) {
	postID := uuid.New()
	authorID := uuid.New()

	comment, err := NewRootComment(postID, authorID, "hello")
	require.NoError(t, err)
	assert.Equal(t, 0, comment.Depth)
	assert.Nil(t, comment.ParentID)
	assert.True(t, comment.IsRoot())
	assert.Equal(t, CommentVisible, comment.Status)
	assert.False(t, comment.Edited())
	assert.Equal(t, comment.CreatedAt, comment.UpdatedAt)
}

func TestNewReplyDerivesDepthFromParent(t *testing.T) {
	postID := uuid.New()
	parent, err := NewRootComment(postID, uuid.New(), "root")
	require.NoError(t, err)

	reply, err := NewReply(parent, uuid.New(), "reply")
	require.NoError(t, err)
	assert.Equal(t, 1, reply.Depth)
	assert.Equal(t, parent.ID, *reply.ParentID)
	assert.Equal(t, postID, reply.PostID)

	deeper, err := NewReply(reply, uuid.New(), "deeper")
	require.NoError(t, err)
	assert.Equal(t, 2, deeper.Depth)
}

func TestNewReplyToDeletedParentRejected(t *testing.T) {
	parent, err := NewRootComment(uuid.New(), uuid.New(), "root")
	require.NoError(t, err)
	require.NoError(t, parent.SoftDelete())

	_, err = NewReply(parent, uuid.New(), "too late")
	assert.True(t, utils.IsErrorCode(err, utils.ErrStateConflict))
}

func TestNewCommentValidation(t *testing.T) {
	postID := uuid.New()
	authorID := uuid.New()

	_, err := NewRootComment(uuid.Nil, authorID, "body")
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))

	_, err = NewRootComment(postID, uuid.Nil, "body")
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))

	_, err = NewRootComment(postID, authorID, "   \n\t ")
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))

	_, err = NewRootComment(postID, authorID, strings.Repeat("x", MaxCommentBodyCreate+1))
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))

	_, err = NewReply(nil, authorID, "body")
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))
}

func TestCommentBodyLimitCountsRunes(t *testing.T) {
	// Multibyte characters count once each, not per byte
	body := strings.Repeat("é", MaxCommentBodyCreate)
	_, err := NewRootComment(uuid.New(), uuid.New(), body)
	assert.NoError(t, err)
}

func TestEditComment(t *testing.T) {
	comment, err := NewRootComment(uuid.New(), uuid.New(), "original")
	require.NoError(t, err)

	require.NoError(t, comment.Edit("changed"))
	assert.Equal(t, "changed", comment.Body)
	assert.True(t, comment.Edited())

	// Edit tolerates bodies longer than the creation limit, up to its own
	longer := strings.Repeat("x", MaxCommentBodyCreate+1)
	assert.NoError(t, comment.Edit(longer))

	tooLong := strings.Repeat("x", MaxCommentBodyEdit+1)
	err = comment.Edit(tooLong)
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))
}

func TestSoftDeleteIsTerminal(t *testing.T) {
	comment, err := NewRootComment(uuid.New(), uuid.New(), "doomed")
	require.NoError(t, err)

	require.NoError(t, comment.SoftDelete())
	assert.Equal(t, CommentDeleted, comment.Status)

	// Deleting again is a conflict, not a no-op
	err = comment.SoftDelete()
	assert.True(t, utils.IsErrorCode(err, utils.ErrStateConflict))

	// A deleted comment resists edits and votes
	err = comment.Edit("resurrection attempt")
	assert.True(t, utils.IsErrorCode(err, utils.ErrStateConflict))
	err = comment.CheckVotable()
	assert.True(t, utils.IsErrorCode(err, utils.ErrStateConflict))
}

func TestApplyVoteDeltaTransitions(t *testing.T) {
	cases := []struct {
		name             string
		oldValue, newVal int
		wantUp, wantDown int
	}{
		{"none to up", 0, 1, 1, 0},
		{"none to down", 0, -1, 0, 1},
		{"up to none", 1, 0, 0, 0},
		{"down to none", -1, 0, 0, 0},
		{"up to down", 1, -1, 0, 1},
		{"down to up", -1, 1, 1, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			comment, err := NewRootComment(uuid.New(), uuid.New(), "body")
			require.NoError(t, err)
			if tc.oldValue == 1 {
				comment.Upvotes = 1
			}
			if tc.oldValue == -1 {
				comment.Downvotes = 1
			}

			comment.ApplyVoteDelta(tc.oldValue, tc.newVal)
			assert.Equal(t, tc.wantUp, comment.Upvotes)
			assert.Equal(t, tc.wantDown, comment.Downvotes)
		})
	}
}

func TestApplyVoteDeltaClampsAtZero(t *testing.T) {
	// Removing a vote from an already-zero counter must not go negative
	comment, err := NewRootComment(uuid.New(), uuid.New(), "body")
	require.NoError(t, err)

	comment.ApplyVoteDelta(1, 0)
	assert.Equal(t, 0, comment.Upvotes)

	comment.ApplyVoteDelta(-1, 1)
	assert.Equal(t, 0, comment.Downvotes)
	assert.Equal(t, 1, comment.Upvotes)
}

func TestCommentVoteDeltaKeepsEditedFalse(t *testing.T) {
	comment, err := NewRootComment(uuid.New(), uuid.New(), "body")
	require.NoError(t, err)

	comment.ApplyVoteDelta(0, 1)
	assert.False(t, comment.Edited())
}
