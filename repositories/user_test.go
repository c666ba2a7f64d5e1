package repositories

import (
	"testing"

	"market-live/errors"

	"github.com/stretchr/testify/require"
)

func Test_Create_And_Fetch_User(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewUserRepository(db)

	// When creating a user
	id, err := repository.CreateUser("alice@campus.edu", "$argon2id$...")
	req.NoError(err)
	req.NotEmpty(id)

	// Then it can be fetched by email
	account, err := repository.GetUserByEmail("alice@campus.edu")
	req.NoError(err)
	req.Equal(id, account.ID)
	req.Equal([]string{"user"}, account.Roles)
}

func Test_Create_Duplicate_User_Fails(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewUserRepository(db)

	_, err := repository.CreateUser("alice@campus.edu", "hash")
	req.NoError(err)

	// When creating the same email again
	_, err = repository.CreateUser("alice@campus.edu", "other")

	// Then the call is rejected
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}
