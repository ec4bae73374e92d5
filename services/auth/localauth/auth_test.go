package localauth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/alama/core/session"
	"github.com/trezcool/alama/core/user"
	"github.com/trezcool/alama/tests"
)

func TestAuth(t *testing.T) {
	ctx := context.Background()
	a := NewMock(testutil.OpenMemDB(t))

	var seen []*session.Identity
	unsubscribe := a.OnSessionChange(func(id *session.Identity) { seen = append(seen, id) })
	defer unsubscribe()
	require.Len(t, seen, 1)
	assert.Nil(t, seen[0])

	id, err := a.CreateAccount(ctx, " Amani@Test.cd ", "kiswahili")
	require.NoError(t, err)
	assert.Equal(t, "amani@test.cd", id.Email)
	assert.NotEmpty(t, id.UID)
	assert.Len(t, seen, 1, "creating an account does not sign in")

	t.Run("email taken", func(t *testing.T) {
		_, err := a.CreateAccount(ctx, "amani@test.cd", "other-pass")
		assert.Equal(t, user.ErrEmailExists, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := a.SignIn(ctx, "amani@test.cd", "nope")
		assert.Equal(t, session.ErrInvalidCredential, err)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := a.SignIn(ctx, "ghost@test.cd", "kiswahili")
		assert.Equal(t, session.ErrInvalidCredential, err)
	})

	t.Run("verify does not sign in", func(t *testing.T) {
		got, err := a.Verify(ctx, "AMANI@test.cd", "kiswahili")
		require.NoError(t, err)
		assert.Equal(t, id, got)
		assert.Nil(t, a.Current())
	})

	t.Run("sign in then out", func(t *testing.T) {
		seen = nil
		_, err := a.SignIn(ctx, "amani@test.cd", "kiswahili")
		require.NoError(t, err)
		assert.Equal(t, &id, a.Current())

		require.NoError(t, a.SignOut(ctx))
		assert.Nil(t, a.Current())
		assert.Equal(t, []*session.Identity{&id, nil}, seen)
	})

	t.Run("set password", func(t *testing.T) {
		require.NoError(t, a.SetPassword(ctx, id.UID, "mpya-kabisa"))
		_, err := a.Verify(ctx, "amani@test.cd", "kiswahili")
		assert.Equal(t, session.ErrInvalidCredential, err)
		_, err = a.Verify(ctx, "amani@test.cd", "mpya-kabisa")
		assert.NoError(t, err)

		assert.Equal(t, session.ErrNoAccount, a.SetPassword(ctx, "ghost", "whatever"))
	})

	t.Run("lookup and delete", func(t *testing.T) {
		got, err := a.LookupEmail(ctx, "amani@test.cd")
		require.NoError(t, err)
		assert.Equal(t, id.UID, got.UID)

		require.NoError(t, a.DeleteAccount(ctx, id.UID))
		_, err = a.LookupEmail(ctx, "amani@test.cd")
		assert.Equal(t, session.ErrNoAccount, err)
	})
}
