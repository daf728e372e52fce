package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priyanshp28/noteZipper/pkg/domain"
)

func TestAccountService_GetAndFind(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	id := verifiedAccount(t, h, "ann@x.io", "secret1")

	acc, err := h.profiles.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ann@x.io", acc.Email)

	acc, err = h.profiles.Find(ctx, " ann@x.io ")
	require.NoError(t, err)
	assert.Equal(t, id, acc.ID)

	_, err = h.profiles.Find(ctx, "ghost@x.io")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	_, err = h.profiles.Find(ctx, "not-an-email")
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
}

func TestAccountService_UpdateName(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	id := verifiedAccount(t, h, "ann@x.io", "secret1")
	sent := h.mailer.count()

	result, err := h.profiles.Update(ctx, id, id, "Ann Lee", "")
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", result.Account.Name)
	assert.True(t, result.Account.Verified)
	assert.Nil(t, result.Issuance)
	assert.Equal(t, sent, h.mailer.count())

	_, err = h.profiles.Update(ctx, id, id, "A", "")
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestAccountService_UpdateEmailUnverifies(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	id := verifiedAccount(t, h, "ann@x.io", "secret1")

	result, err := h.profiles.Update(ctx, id, id, "", "ann@y.io")
	require.NoError(t, err)
	assert.False(t, result.Account.Verified)
	require.NotNil(t, result.Issuance)
	assert.Equal(t, "ann@y.io", h.mailer.last(t).To)

	login, err := h.auth.Login(ctx, "ann@y.io", "secret1")
	require.NoError(t, err)
	assert.Equal(t, LoginPendingVerification, login.Status)

	verify, err := h.auth.VerifyCode(ctx, id, h.mailer.lastCode(t), "")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeVerified, verify.Outcome)
}

func TestAccountService_UpdateEmailTaken(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	id := verifiedAccount(t, h, "ann@x.io", "secret1")
	verifiedAccount(t, h, "bob@x.io", "secret1")

	_, err := h.profiles.Update(ctx, id, id, "", "bob@x.io")
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestAccountService_OwnershipEnforced(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	ann := verifiedAccount(t, h, "ann@x.io", "secret1")
	bob := verifiedAccount(t, h, "bob@x.io", "secret1")

	_, err := h.profiles.Update(ctx, bob, ann, "Mallory", "")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	err = h.profiles.Delete(ctx, bob, ann)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, domain.KindForbidden, domain.KindOf(err))

	_, err = h.profiles.Get(ctx, ann)
	assert.NoError(t, err)
}

func TestAccountService_DeleteRemovesCodes(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	issuance, err := h.auth.Register(ctx, "Ann", "ann@x.io", "secret1")
	require.NoError(t, err)
	id := issuance.AccountID

	require.NoError(t, h.profiles.Delete(ctx, id, id))

	_, err = h.profiles.Get(ctx, id)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	codes, err := h.store.Codes().FindAllForAccount(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, codes)

	assert.ErrorIs(t, h.profiles.Delete(ctx, id, id), domain.ErrAccountNotFound)

	_, err = h.auth.Register(ctx, "Ann", "ann@x.io", "secret1")
	assert.NoError(t, err)
}
