// internal/database/memory.go
package database

import (
	"context"
	"mossboard/internal/models"
	"mossboard/internal/utils"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type voteKey struct {
	kind   models.TargetKind
	target uuid.UUID
	voter  uuid.UUID
}

// MemoryStore is an in-process Adapter used for tests and DB_TYPE=memory.
// A single mutex scopes the vote unit of work; writes inside InVoteTx are
// staged and applied only when fn succeeds, so a failed transaction leaves
// no partial state behind.
type MemoryStore struct {
	mu        sync.Mutex
	users     map[uuid.UUID]*models.User
	emails    map[string]uuid.UUID
	usernames map[string]uuid.UUID
	posts     map[uuid.UUID]*models.Post
	comments  map[uuid.UUID]*models.Comment
	votes     map[voteKey]*models.Vote
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[uuid.UUID]*models.User),
		emails:    make(map[string]uuid.UUID),
		usernames: make(map[string]uuid.UUID),
		posts:     make(map[uuid.UUID]*models.Post),
		comments:  make(map[uuid.UUID]*models.Comment),
		votes:     make(map[voteKey]*models.Vote),
	}
}

func (m *MemoryStore) Close(ctx context.Context) error {
	return nil
}

func keyFor(ref models.TargetRef, voterID uuid.UUID) voteKey {
	return voteKey{kind: ref.Kind, target: ref.ID, voter: voterID}
}

func copyPost(p *models.Post) *models.Post {
	cp := *p
	return &cp
}

func copyComment(c *models.Comment) *models.Comment {
	cp := *c
	if c.ParentID != nil {
		parentID := *c.ParentID
		cp.ParentID = &parentID
	}
	return &cp
}

func copyVote(v *models.Vote) *models.Vote {
	cp := *v
	return &cp
}

func copyUser(u *models.User) *models.User {
	cp := *u
	return &cp
}

// --- VoteReader ---

func (m *MemoryStore) FindVote(ctx context.Context, ref models.TargetRef, voterID uuid.UUID) (*models.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findVoteLocked(ref, voterID), nil
}

func (m *MemoryStore) findVoteLocked(ref models.TargetRef, voterID uuid.UUID) *models.Vote {
	if vote, ok := m.votes[keyFor(ref, voterID)]; ok {
		return copyVote(vote)
	}
	return nil
}

func (m *MemoryStore) FindVotesForVoter(ctx context.Context, kind models.TargetKind, targetIDs []uuid.UUID, voterID uuid.UUID) (map[uuid.UUID]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make(map[uuid.UUID]int, len(targetIDs))
	for _, targetID := range targetIDs {
		key := voteKey{kind: kind, target: targetID, voter: voterID}
		if vote, ok := m.votes[key]; ok {
			result[targetID] = vote.Value
		}
	}
	return result, nil
}

func (m *MemoryStore) CountVotes(ctx context.Context, ref models.TargetRef) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	up, down := 0, 0
	for key, vote := range m.votes {
		if key.kind != ref.Kind || key.target != ref.ID {
			continue
		}
		switch vote.Value {
		case models.VoteValueUp:
			up++
		case models.VoteValueDown:
			down++
		}
	}
	return up, down, nil
}

// --- vote unit of work ---

type memVoteTx struct {
	store *MemoryStore

	putVote     *models.Vote
	removedVote *voteKey
	saved       models.Votable
}

func (m *MemoryStore) InVoteTx(ctx context.Context, fn func(tx VoteTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memVoteTx{store: m}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commitLocked()
	return nil
}

func (tx *memVoteTx) commitLocked() {
	m := tx.store
	if tx.removedVote != nil {
		delete(m.votes, *tx.removedVote)
	}
	if tx.putVote != nil {
		key := voteKey{kind: tx.putVote.Kind, target: tx.putVote.TargetID, voter: tx.putVote.VoterID}
		m.votes[key] = copyVote(tx.putVote)
	}
	if tx.saved != nil {
		tx.saved.BumpVersion()
		switch votable := tx.saved.(type) {
		case *models.Post:
			m.posts[votable.ID] = copyPost(votable)
		case *models.Comment:
			m.comments[votable.ID] = copyComment(votable)
		}
	}
}

func (tx *memVoteTx) FindVote(ctx context.Context, ref models.TargetRef, voterID uuid.UUID) (*models.Vote, error) {
	return tx.store.findVoteLocked(ref, voterID), nil
}

func (tx *memVoteTx) PutVote(ctx context.Context, vote *models.Vote) error {
	if vote.Value != models.VoteValueUp && vote.Value != models.VoteValueDown {
		return utils.NewValidationError("vote value must be +1 or -1")
	}
	tx.putVote = copyVote(vote)
	return nil
}

func (tx *memVoteTx) RemoveVote(ctx context.Context, ref models.TargetRef, voterID uuid.UUID) error {
	key := keyFor(ref, voterID)
	tx.removedVote = &key
	return nil
}

func (tx *memVoteTx) LoadVotable(ctx context.Context, ref models.TargetRef) (models.Votable, error) {
	return tx.store.loadVotableLocked(ref)
}

func (m *MemoryStore) loadVotableLocked(ref models.TargetRef) (models.Votable, error) {
	switch ref.Kind {
	case models.PostTarget:
		if post, ok := m.posts[ref.ID]; ok {
			return copyPost(post), nil
		}
	case models.CommentTarget:
		if comment, ok := m.comments[ref.ID]; ok {
			return copyComment(comment), nil
		}
	default:
		return nil, utils.NewValidationError("unknown vote target kind: " + string(ref.Kind))
	}
	return nil, utils.NewNotFoundError(string(ref.Kind), ref.ID.String())
}

func (tx *memVoteTx) SaveVotable(ctx context.Context, votable models.Votable) error {
	m := tx.store
	ref := votable.Ref()

	var stored models.Votable
	switch ref.Kind {
	case models.PostTarget:
		if post, ok := m.posts[ref.ID]; ok {
			stored = post
		}
	case models.CommentTarget:
		if comment, ok := m.comments[ref.ID]; ok {
			stored = comment
		}
	}
	if stored == nil {
		return utils.NewNotFoundError(string(ref.Kind), ref.ID.String())
	}
	if stored.VersionToken() != votable.VersionToken() {
		return utils.NewVersionConflictError(ref)
	}
	tx.saved = votable
	return nil
}

// --- PostStore ---

func (m *MemoryStore) CreatePost(ctx context.Context, post *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts[post.ID] = copyPost(post)
	return nil
}

func (m *MemoryStore) GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	post, ok := m.posts[id]
	if !ok {
		return nil, utils.NewNotFoundError("post", id.String())
	}
	return copyPost(post), nil
}

func (m *MemoryStore) UpdatePost(ctx context.Context, post *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.posts[post.ID]
	if !ok {
		return utils.NewNotFoundError("post", post.ID.String())
	}
	if stored.Version != post.Version {
		return utils.NewVersionConflictError(post.Ref())
	}
	post.Version++
	m.posts[post.ID] = copyPost(post)
	return nil
}

// --- CommentStore ---

func (m *MemoryStore) CreateComment(ctx context.Context, comment *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments[comment.ID] = copyComment(comment)
	return nil
}

func (m *MemoryStore) GetComment(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	comment, ok := m.comments[id]
	if !ok {
		return nil, utils.NewNotFoundError("comment", id.String())
	}
	return copyComment(comment), nil
}

func (m *MemoryStore) UpdateComment(ctx context.Context, comment *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.comments[comment.ID]
	if !ok {
		return utils.NewNotFoundError("comment", comment.ID.String())
	}
	if stored.Version != comment.Version {
		return utils.NewVersionConflictError(comment.Ref())
	}
	comment.Version++
	m.comments[comment.ID] = copyComment(comment)
	return nil
}

func (m *MemoryStore) GetRootComments(ctx context.Context, postID uuid.UUID, limit, offset int) ([]*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var roots []*models.Comment
	for _, comment := range m.comments {
		if comment.PostID == postID && comment.ParentID == nil {
			roots = append(roots, copyComment(comment))
		}
	}
	sortByCreation(roots)
	return pageOf(roots, limit, offset), nil
}

func (m *MemoryStore) GetReplies(ctx context.Context, parentID uuid.UUID, limit, offset int) ([]*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var replies []*models.Comment
	for _, comment := range m.comments {
		if comment.ParentID != nil && *comment.ParentID == parentID {
			replies = append(replies, copyComment(comment))
		}
	}
	sortByCreation(replies)
	return pageOf(replies, limit, offset), nil
}

func sortByCreation(comments []*models.Comment) {
	sort.Slice(comments, func(i, j int) bool {
		if comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].ID.String() < comments[j].ID.String()
		}
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
}

func pageOf(comments []*models.Comment, limit, offset int) []*models.Comment {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(comments) {
		return []*models.Comment{}
	}
	end := len(comments)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return comments[offset:end]
}

// --- UserStore ---

func (m *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.emails[user.Email]; taken {
		return utils.NewAppError(utils.ErrUserAlreadyExists, "email already registered: "+user.Email, nil)
	}
	if _, taken := m.usernames[user.Username]; taken {
		return utils.NewAppError(utils.ErrUserAlreadyExists, "username already taken: "+user.Username, nil)
	}
	m.users[user.ID] = copyUser(user)
	m.emails[user.Email] = user.ID
	m.usernames[user.Username] = user.ID
	return nil
}

func (m *MemoryStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, utils.NewAppError(utils.ErrUserNotFound, "user not found: "+id.String(), nil)
	}
	return copyUser(user), nil
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.emails[email]
	if !ok {
		return nil, utils.NewAppError(utils.ErrUserNotFound, "user not found: "+email, nil)
	}
	return copyUser(m.users[id]), nil
}

func (m *MemoryStore) GetUsers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make(map[uuid.UUID]*models.User, len(ids))
	for _, id := range ids {
		if user, ok := m.users[id]; ok {
			result[id] = copyUser(user)
		}
	}
	return result, nil
}

func (m *MemoryStore) SetUserBanned(ctx context.Context, id uuid.UUID, banned bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return utils.NewAppError(utils.ErrUserNotFound, "user not found: "+id.String(), nil)
	}
	user.Banned = banned
	return nil
}
