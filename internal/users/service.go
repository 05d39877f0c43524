package users

import (
	"context"
	"mossboard/internal/database"
	"mossboard/internal/models"
	"mossboard/internal/utils"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// Service manages member accounts. The vote/comment core never touches
// credentials; it only receives resolved member IDs.
type Service struct {
	store database.Adapter
	log   zerolog.Logger
}

func NewService(store database.Adapter, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With().Str("component", "users").Logger(),
	}
}

func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	if username == "" {
		return nil, utils.NewValidationError("username must not be blank")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, utils.NewValidationError("a valid email is required")
	}
	if len(password) < minPasswordLength {
		return nil, utils.NewValidationError("password must be at least 8 characters")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to hash password", err)
	}

	now := time.Now()
	user := &models.User{
		ID:             uuid.New(),
		Username:       username,
		Email:          email,
		HashedPassword: string(hashed),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info().Str("user", user.ID.String()).Msg("user registered")
	return user, nil
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if utils.IsErrorCode(err, utils.ErrUserNotFound) {
			return nil, utils.NewAppError(utils.ErrInvalidCredentials, "invalid email or password", nil)
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return nil, utils.NewAppError(utils.ErrInvalidCredentials, "invalid email or password", nil)
	}
	return user, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.store.GetUser(ctx, id)
}

// SetBanned flips a member's ban flag. Enforcement happens in the member
// guard consulted by the vote and comment services.
func (s *Service) SetBanned(ctx context.Context, id uuid.UUID, banned bool) error {
	return s.store.SetUserBanned(ctx, id, banned)
}
