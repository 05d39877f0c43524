// internal/database/mongodb.go
package database

import (
	"context"
	"errors"
	"fmt"
	"mossboard/internal/models"
	"mossboard/internal/utils"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB implements Adapter on top of MongoDB. The vote unit of work uses
// driver sessions so the vote record and the counter update commit together.
type MongoDB struct {
	Client   *mongo.Client
	Users    *mongo.Collection
	Posts    *mongo.Collection
	Comments *mongo.Collection
	Votes    *mongo.Collection
	log      zerolog.Logger
}

func NewMongoDB(uri string, log zerolog.Logger) (*MongoDB, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Info().Msg("connected to MongoDB")

	db := client.Database("mossboard")
	m := &MongoDB{
		Client:   client,
		Users:    db.Collection("users"),
		Posts:    db.Collection("posts"),
		Comments: db.Collection("comments"),
		Votes:    db.Collection("votes"),
		log:      log,
	}
	if err := m.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

func (m *MongoDB) ensureIndexes(ctx context.Context) error {
	_, err := m.Votes.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "voterId", Value: 1},
			{Key: "targetId", Value: 1},
			{Key: "targetKind", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create vote index: %w", err)
	}

	_, err = m.Comments.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "postId", Value: 1}, {Key: "parentId", Value: 1}, {Key: "createdAt", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create comment indexes: %w", err)
	}

	_, err = m.Users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}

// --- documents ---

type postDocument struct {
	ID        string    `bson:"_id"`
	Title     string    `bson:"title"`
	Body      string    `bson:"body"`
	AuthorID  string    `bson:"authorId"`
	Archived  bool      `bson:"archived"`
	Upvotes   int       `bson:"upvotes"`
	Downvotes int       `bson:"downvotes"`
	Version   int64     `bson:"version"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type commentDocument struct {
	ID        string    `bson:"_id"`
	PostID    string    `bson:"postId"`
	AuthorID  string    `bson:"authorId"`
	ParentID  *string   `bson:"parentId,omitempty"`
	Depth     int       `bson:"depth"`
	Body      string    `bson:"body"`
	Status    string    `bson:"status"`
	Upvotes   int       `bson:"upvotes"`
	Downvotes int       `bson:"downvotes"`
	Version   int64     `bson:"version"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type voteDocument struct {
	ID         string    `bson:"_id"`
	VoterID    string    `bson:"voterId"`
	TargetID   string    `bson:"targetId"`
	TargetKind string    `bson:"targetKind"`
	Value      int       `bson:"value"`
	CreatedAt  time.Time `bson:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt"`
}

type userDocument struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	Banned       bool      `bson:"banned"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

func toPostDocument(post *models.Post) postDocument {
	return postDocument{
		ID:        post.ID.String(),
		Title:     post.Title,
		Body:      post.Body,
		AuthorID:  post.AuthorID.String(),
		Archived:  post.Archived,
		Upvotes:   post.Upvotes,
		Downvotes: post.Downvotes,
		Version:   post.Version,
		CreatedAt: post.CreatedAt,
		UpdatedAt: post.UpdatedAt,
	}
}

func (doc *postDocument) toModel() (*models.Post, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid post id %q: %w", doc.ID, err)
	}
	authorID, err := uuid.Parse(doc.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("invalid author id %q: %w", doc.AuthorID, err)
	}
	return &models.Post{
		ID:        id,
		Title:     doc.Title,
		Body:      doc.Body,
		AuthorID:  authorID,
		Archived:  doc.Archived,
		Upvotes:   doc.Upvotes,
		Downvotes: doc.Downvotes,
		Version:   doc.Version,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func toCommentDocument(comment *models.Comment) commentDocument {
	doc := commentDocument{
		ID:        comment.ID.String(),
		PostID:    comment.PostID.String(),
		AuthorID:  comment.AuthorID.String(),
		Depth:     comment.Depth,
		Body:      comment.Body,
		Status:    string(comment.Status),
		Upvotes:   comment.Upvotes,
		Downvotes: comment.Downvotes,
		Version:   comment.Version,
		CreatedAt: comment.CreatedAt,
		UpdatedAt: comment.UpdatedAt,
	}
	if comment.ParentID != nil {
		parentID := comment.ParentID.String()
		doc.ParentID = &parentID
	}
	return doc
}

func (doc *commentDocument) toModel() (*models.Comment, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid comment id %q: %w", doc.ID, err)
	}
	postID, err := uuid.Parse(doc.PostID)
	if err != nil {
		return nil, fmt.Errorf("invalid post id %q: %w", doc.PostID, err)
	}
	authorID, err := uuid.Parse(doc.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("invalid author id %q: %w", doc.AuthorID, err)
	}
	comment := &models.Comment{
		ID:        id,
		PostID:    postID,
		AuthorID:  authorID,
		Depth:     doc.Depth,
		Body:      doc.Body,
		Status:    models.CommentStatus(doc.Status),
		Upvotes:   doc.Upvotes,
		Downvotes: doc.Downvotes,
		Version:   doc.Version,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	if doc.ParentID != nil {
		parentID, err := uuid.Parse(*doc.ParentID)
		if err != nil {
			return nil, fmt.Errorf("invalid parent id %q: %w", *doc.ParentID, err)
		}
		comment.ParentID = &parentID
	}
	return comment, nil
}

func (doc *voteDocument) toModel() (*models.Vote, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid vote id %q: %w", doc.ID, err)
	}
	voterID, err := uuid.Parse(doc.VoterID)
	if err != nil {
		return nil, fmt.Errorf("invalid voter id %q: %w", doc.VoterID, err)
	}
	targetID, err := uuid.Parse(doc.TargetID)
	if err != nil {
		return nil, fmt.Errorf("invalid target id %q: %w", doc.TargetID, err)
	}
	return &models.Vote{
		ID:        id,
		VoterID:   voterID,
		TargetID:  targetID,
		Kind:      models.TargetKind(doc.TargetKind),
		Value:     doc.Value,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func toUserDocument(user *models.User) userDocument {
	return userDocument{
		ID:           user.ID.String(),
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.HashedPassword,
		Banned:       user.Banned,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func (doc *userDocument) toModel() (*models.User, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", doc.ID, err)
	}
	return &models.User{
		ID:             id,
		Username:       doc.Username,
		Email:          doc.Email,
		HashedPassword: doc.PasswordHash,
		Banned:         doc.Banned,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}, nil
}

// --- VoteReader ---

func (m *MongoDB) FindVote(ctx context.Context, ref models.TargetRef, voterID uuid.UUID) (*models.Vote, error) {
	var doc voteDocument
	err := m.Votes.FindOne(ctx, bson.M{
		"voterId":    voterID.String(),
		"targetId":   ref.ID.String(),
		"targetKind": string(ref.Kind),
	}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query vote", err)
	}
	return doc.toModel()
}

func (m *MongoDB) FindVotesForVoter(ctx context.Context, kind models.TargetKind, targetIDs []uuid.UUID, voterID uuid.UUID) (map[uuid.UUID]int, error) {
	result := make(map[uuid.UUID]int, len(targetIDs))
	if len(targetIDs) == 0 {
		return result, nil
	}

	ids := make([]string, len(targetIDs))
	for i, id := range targetIDs {
		ids[i] = id.String()
	}

	cursor, err := m.Votes.Find(ctx, bson.M{
		"voterId":    voterID.String(),
		"targetKind": string(kind),
		"targetId":   bson.M{"$in": ids},
	})
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query voter votes", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc voteDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, utils.NewAppError(utils.ErrDatabase, "failed to decode vote", err)
		}
		targetID, err := uuid.Parse(doc.TargetID)
		if err != nil {
			continue
		}
		result[targetID] = doc.Value
	}
	if err := cursor.Err(); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to read votes", err)
	}
	return result, nil
}

func (m *MongoDB) CountVotes(ctx context.Context, ref models.TargetRef) (int, int, error) {
	filter := bson.M{"targetId": ref.ID.String(), "targetKind": string(ref.Kind)}

	up, err := m.Votes.CountDocuments(ctx, withValue(filter, models.VoteValueUp))
	if err != nil {
		return 0, 0, utils.NewAppError(utils.ErrDatabase, "failed to count upvotes", err)
	}
	down, err := m.Votes.CountDocuments(ctx, withValue(filter, models.VoteValueDown))
	if err != nil {
		return 0, 0, utils.NewAppError(utils.ErrDatabase, "failed to count downvotes", err)
	}
	return int(up), int(down), nil
}

func withValue(filter bson.M, value int) bson.M {
	combined := bson.M{"value": value}
	for k, v := range filter {
		combined[k] = v
	}
	return combined
}

// --- vote unit of work ---

type mongoVoteTx struct {
	db *MongoDB
	sc mongo.SessionContext
}

func (m *MongoDB) InVoteTx(ctx context.Context, fn func(tx VoteTx) error) error {
	session, err := m.Client.StartSession()
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to start session", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(&mongoVoteTx{db: m, sc: sc})
	})
	return err
}

func (t *mongoVoteTx) FindVote(ctx context.Context, ref models.TargetRef, voterID uuid.UUID) (*models.Vote, error) {
	return t.db.FindVote(t.sc, ref, voterID)
}

func (t *mongoVoteTx) PutVote(ctx context.Context, vote *models.Vote) error {
	doc := voteDocument{
		ID:         vote.ID.String(),
		VoterID:    vote.VoterID.String(),
		TargetID:   vote.TargetID.String(),
		TargetKind: string(vote.Kind),
		Value:      vote.Value,
		CreatedAt:  vote.CreatedAt,
		UpdatedAt:  vote.UpdatedAt,
	}
	filter := bson.M{
		"voterId":    doc.VoterID,
		"targetId":   doc.TargetID,
		"targetKind": doc.TargetKind,
	}
	_, err := t.db.Votes.ReplaceOne(t.sc, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return utils.NewAppError(utils.ErrDuplicateVote, "vote insert raced a concurrent insert", err)
		}
		return utils.NewAppError(utils.ErrDatabase, "failed to upsert vote record", err)
	}
	return nil
}

func (t *mongoVoteTx) RemoveVote(ctx context.Context, ref models.TargetRef, voterID uuid.UUID) error {
	_, err := t.db.Votes.DeleteOne(t.sc, bson.M{
		"voterId":    voterID.String(),
		"targetId":   ref.ID.String(),
		"targetKind": string(ref.Kind),
	})
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to delete vote record", err)
	}
	return nil
}

func (t *mongoVoteTx) LoadVotable(ctx context.Context, ref models.TargetRef) (models.Votable, error) {
	switch ref.Kind {
	case models.PostTarget:
		return t.db.getPost(t.sc, ref.ID)
	case models.CommentTarget:
		return t.db.getComment(t.sc, ref.ID)
	default:
		return nil, utils.NewValidationError("unknown vote target kind: " + string(ref.Kind))
	}
}

func (t *mongoVoteTx) SaveVotable(ctx context.Context, votable models.Votable) error {
	ref := votable.Ref()
	up, down := votable.VoteCounts()

	var collection *mongo.Collection
	switch ref.Kind {
	case models.PostTarget:
		collection = t.db.Posts
	case models.CommentTarget:
		collection = t.db.Comments
	default:
		return utils.NewValidationError("unknown vote target kind: " + string(ref.Kind))
	}

	result, err := collection.UpdateOne(t.sc,
		bson.M{"_id": ref.ID.String(), "version": votable.VersionToken()},
		bson.M{
			"$set": bson.M{"upvotes": up, "downvotes": down},
			"$inc": bson.M{"version": 1},
		})
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to save vote counters", err)
	}
	if result.MatchedCount == 0 {
		count, err := collection.CountDocuments(t.sc, bson.M{"_id": ref.ID.String()})
		if err != nil {
			return utils.NewAppError(utils.ErrDatabase, "failed to check target existence", err)
		}
		if count == 0 {
			return utils.NewNotFoundError(string(ref.Kind), ref.ID.String())
		}
		return utils.NewVersionConflictError(ref)
	}
	votable.BumpVersion()
	return nil
}

// --- PostStore ---

func (m *MongoDB) CreatePost(ctx context.Context, post *models.Post) error {
	_, err := m.Posts.InsertOne(ctx, toPostDocument(post))
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to insert post", err)
	}
	return nil
}

func (m *MongoDB) GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	return m.getPost(ctx, id)
}

func (m *MongoDB) getPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var doc postDocument
	err := m.Posts.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewNotFoundError("post", id.String())
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query post", err)
	}
	return doc.toModel()
}

func (m *MongoDB) UpdatePost(ctx context.Context, post *models.Post) error {
	result, err := m.Posts.UpdateOne(ctx,
		bson.M{"_id": post.ID.String(), "version": post.Version},
		bson.M{
			"$set": bson.M{
				"title":     post.Title,
				"body":      post.Body,
				"archived":  post.Archived,
				"updatedAt": post.UpdatedAt,
			},
			"$inc": bson.M{"version": 1},
		})
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to update post", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewVersionConflictError(post.Ref())
	}
	post.Version++
	return nil
}

// --- CommentStore ---

func (m *MongoDB) CreateComment(ctx context.Context, comment *models.Comment) error {
	_, err := m.Comments.InsertOne(ctx, toCommentDocument(comment))
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to insert comment", err)
	}
	return nil
}

func (m *MongoDB) GetComment(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	return m.getComment(ctx, id)
}

func (m *MongoDB) getComment(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	var doc commentDocument
	err := m.Comments.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewNotFoundError("comment", id.String())
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query comment", err)
	}
	return doc.toModel()
}

func (m *MongoDB) UpdateComment(ctx context.Context, comment *models.Comment) error {
	result, err := m.Comments.UpdateOne(ctx,
		bson.M{"_id": comment.ID.String(), "version": comment.Version},
		bson.M{
			"$set": bson.M{
				"body":      comment.Body,
				"status":    string(comment.Status),
				"updatedAt": comment.UpdatedAt,
			},
			"$inc": bson.M{"version": 1},
		})
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to update comment", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewVersionConflictError(comment.Ref())
	}
	comment.Version++
	return nil
}

func (m *MongoDB) GetRootComments(ctx context.Context, postID uuid.UUID, limit, offset int) ([]*models.Comment, error) {
	// {parentId: nil} matches both missing and null fields
	filter := bson.M{"postId": postID.String(), "parentId": nil}
	return m.findComments(ctx, filter, limit, offset)
}

func (m *MongoDB) GetReplies(ctx context.Context, parentID uuid.UUID, limit, offset int) ([]*models.Comment, error) {
	filter := bson.M{"parentId": parentID.String()}
	return m.findComments(ctx, filter, limit, offset)
}

func (m *MongoDB) findComments(ctx context.Context, filter bson.M, limit, offset int) ([]*models.Comment, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := m.Comments.Find(ctx, filter, opts)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query comments", err)
	}
	defer cursor.Close(ctx)

	comments := []*models.Comment{}
	for cursor.Next(ctx) {
		var doc commentDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, utils.NewAppError(utils.ErrDatabase, "failed to decode comment", err)
		}
		comment, err := doc.toModel()
		if err != nil {
			return nil, utils.NewAppError(utils.ErrDatabase, "corrupt comment document", err)
		}
		comments = append(comments, comment)
	}
	if err := cursor.Err(); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to read comments", err)
	}
	return comments, nil
}

// --- UserStore ---

func (m *MongoDB) CreateUser(ctx context.Context, user *models.User) error {
	_, err := m.Users.InsertOne(ctx, toUserDocument(user))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return utils.NewAppError(utils.ErrUserAlreadyExists, "username or email already registered", err)
		}
		return utils.NewAppError(utils.ErrDatabase, "failed to insert user", err)
	}
	return nil
}

func (m *MongoDB) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var doc userDocument
	err := m.Users.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewAppError(utils.ErrUserNotFound, "user not found: "+id.String(), nil)
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query user", err)
	}
	return doc.toModel()
}

func (m *MongoDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var doc userDocument
	err := m.Users.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewAppError(utils.ErrUserNotFound, "user not found: "+email, nil)
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query user by email", err)
	}
	return doc.toModel()
}

func (m *MongoDB) GetUsers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error) {
	result := make(map[uuid.UUID]*models.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}

	cursor, err := m.Users.Find(ctx, bson.M{"_id": bson.M{"$in": strIDs}})
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query users", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc userDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, utils.NewAppError(utils.ErrDatabase, "failed to decode user", err)
		}
		user, err := doc.toModel()
		if err != nil {
			continue
		}
		result[user.ID] = user
	}
	if err := cursor.Err(); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to read users", err)
	}
	return result, nil
}

func (m *MongoDB) SetUserBanned(ctx context.Context, id uuid.UUID, banned bool) error {
	result, err := m.Users.UpdateOne(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": bson.M{"banned": banned, "updatedAt": time.Now()}})
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to update ban status", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewAppError(utils.ErrUserNotFound, "user not found: "+id.String(), nil)
	}
	return nil
}
