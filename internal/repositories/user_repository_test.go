package repositories

import (
	"testing"
	"time"

	"mchat_backend/internal/models"
	"mchat_backend/test/helpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_OnlineTransitions(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := NewUserRepository()
	alice := helpers.CreateUser(t, db, "alice")
	bob := helpers.CreateUser(t, db, "bob")

	require.NoError(t, repo.SetOnline(db, alice.ID))
	ids, err := repo.FindOnlineUserIDs(db)
	require.NoError(t, err)
	assert.Equal(t, []string{alice.ID}, ids)

	at := time.Now().Add(-time.Minute).UTC().Truncate(time.Second)
	user, err := repo.SetOffline(db, alice.ID, at)
	require.NoError(t, err)
	require.NotNil(t, user.LastSeen)
	assert.True(t, user.LastSeen.Equal(at))
	assert.False(t, user.IsOnline())

	_, err = repo.SetOffline(db, "00000000-0000-0000-0000-000000000000", at)
	assert.ErrorIs(t, err, ErrUserNotFound)

	users, err := repo.FindByIDs(db, []string{alice.ID, bob.ID})
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestUserRepository_ResetOnlineUsers(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := NewUserRepository()
	alice := helpers.CreateUser(t, db, "alice")
	bob := helpers.CreateUser(t, db, "bob")
	helpers.CreateUser(t, db, "carol")

	require.NoError(t, repo.SetOnline(db, alice.ID))
	require.NoError(t, repo.SetOnline(db, bob.ID))

	reset, err := repo.ResetOnlineUsers(db, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 2, reset)

	ids, err := repo.FindOnlineUserIDs(db)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = repo.FindByID(db, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_CreateKeepsPrivacyFlags(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := NewUserRepository()

	user := models.NewUser("dave", models.UserRoleModerator)
	user.ShowTyping = false
	require.NoError(t, repo.Create(db, user))

	stored, err := repo.FindByID(db, user.ID)
	require.NoError(t, err)
	assert.False(t, stored.ShowTyping)
	assert.True(t, stored.ShowLastSeen)
	assert.Equal(t, models.UserRoleModerator, stored.Role)
}
