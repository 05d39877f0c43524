package comments

import (
	"context"
	"mossboard/internal/database"

	"github.com/google/uuid"
)

// userDirectory resolves author display names from the user store.
type userDirectory struct {
	users database.UserStore
}

func NewUserDirectory(users database.UserStore) AuthorDirectory {
	return &userDirectory{users: users}
}

func (d *userDirectory) DisplayNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	users, err := d.users.GetUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(users))
	for id, user := range users {
		names[id] = user.Username
	}
	return names, nil
}
