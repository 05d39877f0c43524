// internal/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"mossboard/internal/models"
	"mossboard/internal/utils"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

const pqUniqueViolation = "23505"

// PostgresDB implements Adapter on top of PostgreSQL.
type PostgresDB struct {
	DB  *sqlx.DB
	log zerolog.Logger
}

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(connectionString string, log zerolog.Logger) (*PostgresDB, error) {
	db, err := sqlx.Connect("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	log.Info().Msg("connected to PostgreSQL")

	return &PostgresDB{DB: db, log: log}, nil
}

func (p *PostgresDB) Close(ctx context.Context) error {
	p.log.Info().Msg("closing PostgreSQL connection")
	return p.DB.Close()
}

// InitializeTables creates all necessary tables if they don't exist
func (p *PostgresDB) InitializeTables(ctx context.Context) error {
	_, err := p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			email VARCHAR(100) UNIQUE NOT NULL,
			password_hash VARCHAR(100) NOT NULL,
			banned BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}

	_, err = p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS posts (
			id UUID PRIMARY KEY,
			title VARCHAR(300) NOT NULL,
			body TEXT NOT NULL DEFAULT '',
			author_id UUID NOT NULL REFERENCES users(id),
			archived BOOLEAN NOT NULL DEFAULT FALSE,
			upvotes INTEGER NOT NULL DEFAULT 0 CHECK (upvotes >= 0),
			downvotes INTEGER NOT NULL DEFAULT 0 CHECK (downvotes >= 0),
			version BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create posts table: %w", err)
	}

	_, err = p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS comments (
			id UUID PRIMARY KEY,
			post_id UUID NOT NULL REFERENCES posts(id),
			author_id UUID NOT NULL REFERENCES users(id),
			parent_id UUID REFERENCES comments(id),
			depth INTEGER NOT NULL CHECK (depth >= 0),
			body TEXT NOT NULL,
			status VARCHAR(10) NOT NULL DEFAULT 'visible',
			upvotes INTEGER NOT NULL DEFAULT 0 CHECK (upvotes >= 0),
			downvotes INTEGER NOT NULL DEFAULT 0 CHECK (downvotes >= 0),
			version BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create comments table: %w", err)
	}

	_, err = p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS votes (
			id UUID PRIMARY KEY,
			voter_id UUID NOT NULL REFERENCES users(id),
			target_id UUID NOT NULL,
			target_kind VARCHAR(10) NOT NULL,
			value INTEGER NOT NULL CHECK (value IN (-1, 1)),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			UNIQUE (voter_id, target_id, target_kind)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create votes table: %w", err)
	}

	_, err = p.DB.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_comments_post_roots ON comments (post_id, created_at) WHERE parent_id IS NULL;
		CREATE INDEX IF NOT EXISTS idx_comments_parent ON comments (parent_id, created_at);
		CREATE INDEX IF NOT EXISTS idx_votes_target ON votes (target_kind, target_id)
	`)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// --- VoteReader ---

func (p *PostgresDB) FindVote(ctx context.Context, ref models.TargetRef, voterID uuid.UUID) (*models.Vote, error) {
	return findVote(ctx, p.DB, ref, voterID)
}

func findVote(ctx context.Context, q sqlx.QueryerContext, ref models.TargetRef, voterID uuid.UUID) (*models.Vote, error) {
	var vote models.Vote
	err := sqlx.GetContext(ctx, q, &vote,
		`SELECT id, voter_id, target_id, target_kind, value, created_at, updated_at
		 FROM votes WHERE voter_id = $1 AND target_id = $2 AND target_kind = $3`,
		voterID, ref.ID, ref.Kind)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query vote", err)
	}
	return &vote, nil
}

func (p *PostgresDB) FindVotesForVoter(ctx context.Context, kind models.TargetKind, targetIDs []uuid.UUID, voterID uuid.UUID) (map[uuid.UUID]int, error) {
	result := make(map[uuid.UUID]int, len(targetIDs))
	if len(targetIDs) == 0 {
		return result, nil
	}

	ids := make([]string, len(targetIDs))
	for i, id := range targetIDs {
		ids[i] = id.String()
	}

	rows, err := p.DB.QueryxContext(ctx,
		`SELECT target_id, value FROM votes
		 WHERE voter_id = $1 AND target_kind = $2 AND target_id = ANY($3)`,
		voterID, kind, pq.Array(ids))
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query voter votes", err)
	}
	defer rows.Close()

	for rows.Next() {
		var targetID uuid.UUID
		var value int
		if err := rows.Scan(&targetID, &value); err != nil {
			return nil, utils.NewAppError(utils.ErrDatabase, "failed to scan vote row", err)
		}
		result[targetID] = value
	}
	if err := rows.Err(); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to read vote rows", err)
	}
	return result, nil
}

func (p *PostgresDB) CountVotes(ctx context.Context, ref models.TargetRef) (int, int, error) {
	var up, down int
	err := p.DB.QueryRowxContext(ctx,
		`SELECT COUNT(*) FILTER (WHERE value = 1), COUNT(*) FILTER (WHERE value = -1)
		 FROM votes WHERE target_id = $1 AND target_kind = $2`,
		ref.ID, ref.Kind).Scan(&up, &down)
	if err != nil {
		return 0, 0, utils.NewAppError(utils.ErrDatabase, "failed to count votes", err)
	}
	return up, down, nil
}

// --- vote unit of work ---

type pgVoteTx struct {
	tx *sqlx.Tx
}

func (p *PostgresDB) InVoteTx(ctx context.Context, fn func(tx VoteTx) error) error {
	tx, err := p.DB.BeginTxx(ctx, nil)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to begin vote transaction", err)
	}
	defer tx.Rollback() // Rollback is ignored if tx is committed.

	if err := fn(&pgVoteTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to commit vote transaction", err)
	}
	return nil
}

func (t *pgVoteTx) FindVote(ctx context.Context, ref models.TargetRef, voterID uuid.UUID) (*models.Vote, error) {
	return findVote(ctx, t.tx, ref, voterID)
}

func (t *pgVoteTx) PutVote(ctx context.Context, vote *models.Vote) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO votes (id, voter_id, target_id, target_kind, value, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (voter_id, target_id, target_kind) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at`,
		vote.ID, vote.VoterID, vote.TargetID, vote.Kind, vote.Value, vote.CreatedAt, vote.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return utils.NewAppError(utils.ErrDuplicateVote, "vote insert raced a concurrent insert", err)
		}
		return utils.NewAppError(utils.ErrDatabase, "failed to upsert vote record", err)
	}
	return nil
}

func (t *pgVoteTx) RemoveVote(ctx context.Context, ref models.TargetRef, voterID uuid.UUID) error {
	_, err := t.tx.ExecContext(ctx,
		`DELETE FROM votes WHERE voter_id = $1 AND target_id = $2 AND target_kind = $3`,
		voterID, ref.ID, ref.Kind)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to delete vote record", err)
	}
	return nil
}

func (t *pgVoteTx) LoadVotable(ctx context.Context, ref models.TargetRef) (models.Votable, error) {
	switch ref.Kind {
	case models.PostTarget:
		var post models.Post
		err := t.tx.GetContext(ctx, &post, `SELECT * FROM posts WHERE id = $1`, ref.ID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NewNotFoundError("post", ref.ID.String())
		}
		if err != nil {
			return nil, utils.NewAppError(utils.ErrDatabase, "failed to load post", err)
		}
		return &post, nil
	case models.CommentTarget:
		var comment models.Comment
		err := t.tx.GetContext(ctx, &comment, `SELECT * FROM comments WHERE id = $1`, ref.ID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NewNotFoundError("comment", ref.ID.String())
		}
		if err != nil {
			return nil, utils.NewAppError(utils.ErrDatabase, "failed to load comment", err)
		}
		return &comment, nil
	default:
		return nil, utils.NewValidationError("unknown vote target kind: " + string(ref.Kind))
	}
}

func (t *pgVoteTx) SaveVotable(ctx context.Context, votable models.Votable) error {
	ref := votable.Ref()
	up, down := votable.VoteCounts()

	var table string
	switch ref.Kind {
	case models.PostTarget:
		table = "posts"
	case models.CommentTarget:
		table = "comments"
	default:
		return utils.NewValidationError("unknown vote target kind: " + string(ref.Kind))
	}

	result, err := t.tx.ExecContext(ctx,
		`UPDATE `+table+` SET upvotes = $1, downvotes = $2, version = version + 1
		 WHERE id = $3 AND version = $4`,
		up, down, ref.ID, votable.VersionToken())
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to save vote counters", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to read rows affected", err)
	}
	if affected == 0 {
		var exists bool
		if err := t.tx.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, ref.ID); err != nil {
			return utils.NewAppError(utils.ErrDatabase, "failed to check target existence", err)
		}
		if !exists {
			return utils.NewNotFoundError(string(ref.Kind), ref.ID.String())
		}
		return utils.NewVersionConflictError(ref)
	}
	votable.BumpVersion()
	return nil
}

// --- PostStore ---

func (p *PostgresDB) CreatePost(ctx context.Context, post *models.Post) error {
	_, err := p.DB.ExecContext(ctx,
		`INSERT INTO posts (id, title, body, author_id, archived, upvotes, downvotes, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		post.ID, post.Title, post.Body, post.AuthorID, post.Archived,
		post.Upvotes, post.Downvotes, post.Version, post.CreatedAt, post.UpdatedAt)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to insert post", err)
	}
	return nil
}

func (p *PostgresDB) GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var post models.Post
	err := p.DB.GetContext(ctx, &post, `SELECT * FROM posts WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.NewNotFoundError("post", id.String())
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query post", err)
	}
	return &post, nil
}

func (p *PostgresDB) UpdatePost(ctx context.Context, post *models.Post) error {
	result, err := p.DB.ExecContext(ctx,
		`UPDATE posts SET title = $1, body = $2, archived = $3, updated_at = $4, version = version + 1
		 WHERE id = $5 AND version = $6`,
		post.Title, post.Body, post.Archived, post.UpdatedAt, post.ID, post.Version)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to update post", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return utils.NewVersionConflictError(post.Ref())
	}
	post.Version++
	return nil
}

// --- CommentStore ---

func (p *PostgresDB) CreateComment(ctx context.Context, comment *models.Comment) error {
	_, err := p.DB.ExecContext(ctx,
		`INSERT INTO comments (id, post_id, author_id, parent_id, depth, body, status, upvotes, downvotes, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		comment.ID, comment.PostID, comment.AuthorID, comment.ParentID, comment.Depth,
		comment.Body, comment.Status, comment.Upvotes, comment.Downvotes, comment.Version,
		comment.CreatedAt, comment.UpdatedAt)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to insert comment", err)
	}
	return nil
}

func (p *PostgresDB) GetComment(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	var comment models.Comment
	err := p.DB.GetContext(ctx, &comment, `SELECT * FROM comments WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.NewNotFoundError("comment", id.String())
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query comment", err)
	}
	return &comment, nil
}

func (p *PostgresDB) UpdateComment(ctx context.Context, comment *models.Comment) error {
	result, err := p.DB.ExecContext(ctx,
		`UPDATE comments SET body = $1, status = $2, updated_at = $3, version = version + 1
		 WHERE id = $4 AND version = $5`,
		comment.Body, comment.Status, comment.UpdatedAt, comment.ID, comment.Version)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to update comment", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return utils.NewVersionConflictError(comment.Ref())
	}
	comment.Version++
	return nil
}

func (p *PostgresDB) GetRootComments(ctx context.Context, postID uuid.UUID, limit, offset int) ([]*models.Comment, error) {
	comments := []*models.Comment{}
	err := p.DB.SelectContext(ctx, &comments,
		`SELECT * FROM comments WHERE post_id = $1 AND parent_id IS NULL
		 ORDER BY created_at ASC, id ASC LIMIT $2 OFFSET $3`,
		postID, limit, offset)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query root comments", err)
	}
	return comments, nil
}

func (p *PostgresDB) GetReplies(ctx context.Context, parentID uuid.UUID, limit, offset int) ([]*models.Comment, error) {
	comments := []*models.Comment{}
	err := p.DB.SelectContext(ctx, &comments,
		`SELECT * FROM comments WHERE parent_id = $1
		 ORDER BY created_at ASC, id ASC LIMIT $2 OFFSET $3`,
		parentID, limit, offset)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query replies", err)
	}
	return comments, nil
}

// --- UserStore ---

func (p *PostgresDB) CreateUser(ctx context.Context, user *models.User) error {
	_, err := p.DB.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, banned, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Username, user.Email, user.HashedPassword, user.Banned,
		user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return utils.NewAppError(utils.ErrUserAlreadyExists, "username or email already registered", err)
		}
		return utils.NewAppError(utils.ErrDatabase, "failed to insert user", err)
	}
	return nil
}

func (p *PostgresDB) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := p.DB.GetContext(ctx, &user, `SELECT * FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.NewAppError(utils.ErrUserNotFound, "user not found: "+id.String(), nil)
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query user", err)
	}
	return &user, nil
}

func (p *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := p.DB.GetContext(ctx, &user, `SELECT * FROM users WHERE email = $1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.NewAppError(utils.ErrUserNotFound, "user not found: "+email, nil)
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query user by email", err)
	}
	return &user, nil
}

func (p *PostgresDB) GetUsers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error) {
	result := make(map[uuid.UUID]*models.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}

	users := []*models.User{}
	err := p.DB.SelectContext(ctx, &users, `SELECT * FROM users WHERE id = ANY($1)`, pq.Array(strIDs))
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query users", err)
	}
	for _, user := range users {
		result[user.ID] = user
	}
	return result, nil
}

func (p *PostgresDB) SetUserBanned(ctx context.Context, id uuid.UUID, banned bool) error {
	result, err := p.DB.ExecContext(ctx,
		`UPDATE users SET banned = $1, updated_at = NOW() WHERE id = $2`, banned, id)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to update ban status", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return utils.NewAppError(utils.ErrUserNotFound, "user not found: "+id.String(), nil)
	}
	return nil
}
