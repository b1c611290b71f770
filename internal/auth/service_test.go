package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coachfit/internal/auth"
	"coachfit/internal/testutil"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fixture struct {
	svc      *auth.Service
	accounts *testutil.Accounts
	notifier *testutil.Notifier
	codes    *auth.RedisCodeStore
	tokens   *auth.TokenIssuer
	mr       *miniredis.Miniredis
}

func newFixture(t *testing.T, verification bool) *fixture {
	t.Helper()
	mr, client := testutil.NewRedis(t)
	f := &fixture{
		accounts: testutil.NewAccounts(),
		notifier: &testutil.Notifier{},
		codes:    auth.NewRedisCodeStore(client, "test:"),
		tokens:   auth.NewTokenIssuer(testSecret, time.Hour),
		mr:       mr,
	}
	f.svc = auth.NewService(f.accounts, f.codes, f.notifier, testutil.FastHasher{}, f.tokens, auth.ServiceConfig{
		VerifyCodeTTL:       15 * time.Minute,
		ResetCodeTTL:        24 * time.Hour,
		CallTimeout:         time.Second,
		VerificationEnabled: verification,
	}, nil)
	return f
}

func registerInput(id auth.Identity) auth.RegisterInput {
	return auth.RegisterInput{
		FirstName: "Ana",
		LastName:  "López",
		Password:  "123456",
		Role:      auth.RoleCoach,
		Identity:  id,
	}
}

func (f *fixture) lastCode(t *testing.T) string {
	t.Helper()
	msg, err := f.notifier.Last()
	require.NoError(t, err)
	return msg.Code
}

func wrongCode(code string) string {
	if code == "000000" {
		return "000001"
	}
	return "000000"
}

func assertKind(t *testing.T, err error, kind auth.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, auth.KindOf(err), "err: %v", err)
}

func TestRegisterCreatesInactiveAccountAndSendsCode(t *testing.T) {
	ctx := context.Background()
	for _, id := range []auth.Identity{auth.EmailIdentity("a@x.com"), auth.PhoneIdentity("+525512345678")} {
		t.Run(string(id.Channel), func(t *testing.T) {
			f := newFixture(t, true)
			res, err := f.svc.Register(ctx, registerInput(id))
			require.NoError(t, err)

			assert.False(t, res.Account.IsActive)
			assert.Equal(t, "register."+string(id.Channel), res.MessageKey)
			assert.Equal(t, "hashed:123456", f.accounts.Get(res.Account.ID).PasswordHash)

			msg, err := f.notifier.Last()
			require.NoError(t, err)
			assert.Equal(t, id, msg.Recipient)
			assert.Equal(t, auth.PurposeVerify, msg.Purpose)
			assert.Len(t, msg.Code, 6)

			stored, ok, err := f.codes.Get(ctx, res.Account.ID, auth.PurposeVerify)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, auth.HashString(msg.Code), stored)
			assert.NotEqual(t, msg.Code, stored)
		})
	}
}

func TestRegisterWithoutVerification(t *testing.T) {
	f := newFixture(t, false)
	res, err := f.svc.Register(context.Background(), registerInput(auth.EmailIdentity("a@x.com")))
	require.NoError(t, err)

	assert.True(t, res.Account.IsActive)
	assert.Equal(t, "register.no_verification", res.MessageKey)
	assert.Empty(t, f.notifier.Sent())
}

func TestRegisterConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	_, err := f.svc.Register(ctx, registerInput(auth.EmailIdentity("a@x.com")))
	require.NoError(t, err)

	other := registerInput(auth.EmailIdentity("A@X.com"))
	other.FirstName = "Otra"
	other.Password = "abcdefgh"
	other.Role = auth.RoleClient
	_, err = f.svc.Register(ctx, other)
	assertKind(t, err, auth.KindConflict)

	var e *auth.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "register.conflict_email", e.Key)
	assert.Equal(t, 1, f.accounts.Len())
}

func TestRegisterSurvivesDispatchFailure(t *testing.T) {
	f := newFixture(t, true)
	f.notifier.Err = errors.New("smtp down")

	res, err := f.svc.Register(context.Background(), registerInput(auth.EmailIdentity("a@x.com")))
	require.NoError(t, err)
	assert.NotNil(t, f.accounts.Get(res.Account.ID))
}

func TestVerifyActivatesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	id := auth.EmailIdentity("a@x.com")
	res, err := f.svc.Register(ctx, registerInput(id))
	require.NoError(t, err)
	code := f.lastCode(t)

	require.NoError(t, f.svc.Verify(ctx, auth.VerifyInput{Identity: id, Code: code}))
	assert.True(t, f.accounts.Get(res.Account.ID).IsActive)

	_, ok, err := f.codes.Get(ctx, res.Account.ID, auth.PurposeVerify)
	require.NoError(t, err)
	assert.False(t, ok)

	err = f.svc.Verify(ctx, auth.VerifyInput{Identity: id, Code: code})
	assertKind(t, err, auth.KindAlreadyVerified)
}

func TestVerifyMismatchKeepsCode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	id := auth.EmailIdentity("a@x.com")
	res, err := f.svc.Register(ctx, registerInput(id))
	require.NoError(t, err)
	code := f.lastCode(t)

	err = f.svc.Verify(ctx, auth.VerifyInput{Identity: id, Code: wrongCode(code)})
	assertKind(t, err, auth.KindMismatch)
	assert.False(t, f.accounts.Get(res.Account.ID).IsActive)

	_, ok, err := f.codes.Get(ctx, res.Account.ID, auth.PurposeVerify)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, f.svc.Verify(ctx, auth.VerifyInput{Identity: id, Code: code}))
}

func TestVerifyExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	id := auth.EmailIdentity("a@x.com")
	_, err := f.svc.Register(ctx, registerInput(id))
	require.NoError(t, err)
	code := f.lastCode(t)

	f.mr.FastForward(16 * time.Minute)

	err = f.svc.Verify(ctx, auth.VerifyInput{Identity: id, Code: code})
	assertKind(t, err, auth.KindExpired)
}

func TestVerifyUnknownAccount(t *testing.T) {
	f := newFixture(t, true)
	err := f.svc.Verify(context.Background(), auth.VerifyInput{Identity: auth.EmailIdentity("nobody@x.com"), Code: "123456"})
	assertKind(t, err, auth.KindNotFound)
}

func TestVerifyFailsWhenActivationFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	id := auth.EmailIdentity("a@x.com")
	_, err := f.svc.Register(ctx, registerInput(id))
	require.NoError(t, err)

	f.accounts.FailSetActive = errors.New("db down")
	err = f.svc.Verify(ctx, auth.VerifyInput{Identity: id, Code: f.lastCode(t)})
	require.Error(t, err)
	assert.Equal(t, auth.Kind(""), auth.KindOf(err))
}

func TestResendInvalidatesPreviousCode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	id := auth.PhoneIdentity("+525512345678")
	_, err := f.svc.Register(ctx, registerInput(id))
	require.NoError(t, err)
	first := f.lastCode(t)

	var second string
	for {
		key, err := f.svc.ResendCode(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "resend.phone", key)
		if second = f.lastCode(t); second != first {
			break
		}
	}

	err = f.svc.Verify(ctx, auth.VerifyInput{Identity: id, Code: first})
	assertKind(t, err, auth.KindMismatch)
	require.NoError(t, f.svc.Verify(ctx, auth.VerifyInput{Identity: id, Code: second}))
}

func TestResendRejectsActiveAccount(t *testing.T) {
	f := newFixture(t, false)
	id := auth.EmailIdentity("a@x.com")
	_, err := f.svc.Register(context.Background(), registerInput(id))
	require.NoError(t, err)

	_, err = f.svc.ResendCode(context.Background(), id)
	assertKind(t, err, auth.KindAlreadyVerified)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	id := auth.EmailIdentity("a@x.com")
	res, err := f.svc.Register(ctx, registerInput(id))
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, auth.LoginInput{Identity: id, Password: "123456"})
	assertKind(t, err, auth.KindForbidden)

	require.NoError(t, f.svc.Verify(ctx, auth.VerifyInput{Identity: id, Code: f.lastCode(t)}))

	_, err = f.svc.Login(ctx, auth.LoginInput{Identity: id, Password: "wrong-pass"})
	assertKind(t, err, auth.KindNotFound)

	_, err = f.svc.Login(ctx, auth.LoginInput{Identity: auth.EmailIdentity("nobody@x.com"), Password: "123456"})
	assertKind(t, err, auth.KindNotFound)

	out, err := f.svc.Login(ctx, auth.LoginInput{Identity: id, Password: "123456"})
	require.NoError(t, err)
	require.NotEmpty(t, out.Token)

	claims, err := f.tokens.Validate(out.Token)
	require.NoError(t, err)
	assert.Equal(t, res.Account.ID, claims.AccountID)
	assert.Equal(t, "coach", claims.Role)
}

func TestLoginInactiveKeys(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	id := auth.EmailIdentity("a@x.com")
	res, err := f.svc.Register(ctx, registerInput(id))
	require.NoError(t, err)

	active, err := f.svc.ToggleActive(ctx, res.Account.ID)
	require.NoError(t, err)
	require.False(t, active)

	_, err = f.svc.Login(ctx, auth.LoginInput{Identity: id, Password: "123456"})
	var e *auth.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, auth.KindForbidden, e.Kind)
	assert.Equal(t, "login.disabled", e.Key)
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	id := auth.EmailIdentity("a@x.com")
	res, err := f.svc.Register(ctx, registerInput(id))
	require.NoError(t, err)

	key, err := f.svc.RequestReset(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "reset.email", key)
	msg, err := f.notifier.Last()
	require.NoError(t, err)
	assert.Equal(t, auth.PurposeReset, msg.Purpose)

	err = f.svc.ChangePassword(ctx, auth.ChangePasswordInput{Identity: id, Code: msg.Code, Password: "new-secret"})
	require.NoError(t, err)
	assert.Equal(t, "hashed:new-secret", f.accounts.Get(res.Account.ID).PasswordHash)

	_, ok, err := f.codes.Get(ctx, res.Account.ID, auth.PurposeReset)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.svc.Login(ctx, auth.LoginInput{Identity: id, Password: "new-secret"})
	assert.NoError(t, err)
}

func TestChangePasswordWrongCodeDestroysCode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	id := auth.EmailIdentity("a@x.com")
	res, err := f.svc.Register(ctx, registerInput(id))
	require.NoError(t, err)
	_, err = f.svc.RequestReset(ctx, id)
	require.NoError(t, err)
	code := f.lastCode(t)

	err = f.svc.ChangePassword(ctx, auth.ChangePasswordInput{Identity: id, Code: wrongCode(code), Password: "new-secret"})
	assertKind(t, err, auth.KindCodeIncorrect)

	_, ok, err := f.codes.Get(ctx, res.Account.ID, auth.PurposeReset)
	require.NoError(t, err)
	assert.False(t, ok)

	err = f.svc.ChangePassword(ctx, auth.ChangePasswordInput{Identity: id, Code: code, Password: "new-secret"})
	assertKind(t, err, auth.KindCodeNotFound)
	assert.Equal(t, "hashed:123456", f.accounts.Get(res.Account.ID).PasswordHash)
}

func TestPasswordResetUnknownAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	id := auth.EmailIdentity("nobody@x.com")

	_, err := f.svc.RequestReset(ctx, id)
	assertKind(t, err, auth.KindNotFound)

	err = f.svc.ChangePassword(ctx, auth.ChangePasswordInput{Identity: id, Code: "123456", Password: "new-secret"})
	assertKind(t, err, auth.KindNotFound)
}

func TestRefreshRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	res, err := f.svc.Register(ctx, registerInput(auth.EmailIdentity("a@x.com")))
	require.NoError(t, err)

	original, err := f.tokens.Issue(res.Account)
	require.NoError(t, err)

	refreshed, err := f.svc.Refresh(ctx, "Bearer "+original)
	require.NoError(t, err)

	before, err := f.tokens.Validate(original)
	require.NoError(t, err)
	after, err := f.tokens.Validate(refreshed)
	require.NoError(t, err)

	assert.Equal(t, before.AccountID, after.AccountID)
	assert.NotEqual(t, before.ID, after.ID)
	assert.NotEqual(t, original, refreshed)
}

func TestRefreshAcceptsExpiredToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	res, err := f.svc.Register(ctx, registerInput(auth.EmailIdentity("a@x.com")))
	require.NoError(t, err)

	expired, err := auth.NewTokenIssuer(testSecret, -time.Minute).Issue(res.Account)
	require.NoError(t, err)
	_, err = f.tokens.Validate(expired)
	require.Error(t, err)

	refreshed, err := f.svc.Refresh(ctx, "Bearer "+expired)
	require.NoError(t, err)
	_, err = f.tokens.Validate(refreshed)
	assert.NoError(t, err)
}

func TestRefreshErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	res, err := f.svc.Register(ctx, registerInput(auth.EmailIdentity("a@x.com")))
	require.NoError(t, err)

	forged, err := auth.NewTokenIssuer("another-secret-another-secret-xx", time.Hour).Issue(res.Account)
	require.NoError(t, err)

	ghost := *res.Account
	ghost.ID = 999
	orphan, err := f.tokens.Issue(&ghost)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		kind   auth.Kind
	}{
		{"missing", "", auth.KindTokenMissing},
		{"wrong scheme", "Basic abc", auth.KindTokenMalformed},
		{"garbage", "Bearer not-a-token", auth.KindTokenInvalid},
		{"bad signature", "Bearer " + forged, auth.KindTokenInvalid},
		{"account gone", "Bearer " + orphan, auth.KindNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Refresh(ctx, tc.header)
			assertKind(t, err, tc.kind)
		})
	}
}

func TestToggleActive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	res, err := f.svc.Register(ctx, registerInput(auth.EmailIdentity("a@x.com")))
	require.NoError(t, err)

	active, err := f.svc.ToggleActive(ctx, res.Account.ID)
	require.NoError(t, err)
	assert.True(t, active)

	active, err = f.svc.ToggleActive(ctx, res.Account.ID)
	require.NoError(t, err)
	assert.False(t, active)

	_, err = f.svc.ToggleActive(ctx, 42)
	assertKind(t, err, auth.KindNotFound)
}

func TestLoginInactiveWithWrongPassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	id := auth.EmailIdentity("a@x.com")
	_, err := f.svc.Register(ctx, registerInput(id))
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, auth.LoginInput{Identity: id, Password: "wrong-pass"})
	var e *auth.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, auth.KindForbidden, e.Kind)
	assert.Equal(t, "login.not_verified", e.Key)
}

func TestRefreshRejectsDeactivatedAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	id := auth.EmailIdentity("a@x.com")
	res, err := f.svc.Register(ctx, registerInput(id))
	require.NoError(t, err)

	out, err := f.svc.Login(ctx, auth.LoginInput{Identity: id, Password: "123456"})
	require.NoError(t, err)

	active, err := f.svc.ToggleActive(ctx, res.Account.ID)
	require.NoError(t, err)
	require.False(t, active)

	token, err := f.svc.Refresh(ctx, "Bearer "+out.Token)
	assertKind(t, err, auth.KindForbidden)
	assert.Empty(t, token)

	_, err = f.svc.ToggleActive(ctx, res.Account.ID)
	require.NoError(t, err)
	_, err = f.svc.Refresh(ctx, "Bearer "+out.Token)
	assert.NoError(t, err)
}

func TestCreateAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	id := auth.PhoneIdentity("+52 55 1234 5678")

	account, err := f.svc.CreateAccount(ctx, registerInput(id))
	require.NoError(t, err)
	assert.True(t, account.IsActive)
	assert.Equal(t, "hashed:123456", account.PasswordHash)
	assert.Empty(t, f.notifier.Sent())

	_, err = f.svc.Login(ctx, auth.LoginInput{Identity: id, Password: "123456"})
	assert.NoError(t, err)

	_, err = f.svc.CreateAccount(ctx, registerInput(id))
	assertKind(t, err, auth.KindConflict)
}

func TestGetAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	res, err := f.svc.Register(ctx, registerInput(auth.EmailIdentity("a@x.com")))
	require.NoError(t, err)

	account, err := f.svc.GetAccount(ctx, res.Account.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", account.FirstName)

	_, err = f.svc.GetAccount(ctx, 999)
	assertKind(t, err, auth.KindNotFound)
}

func TestUpdateAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	res, err := f.svc.Register(ctx, registerInput(auth.EmailIdentity("a@x.com")))
	require.NoError(t, err)
	_, err = f.svc.Register(ctx, registerInput(auth.EmailIdentity("b@x.com")))
	require.NoError(t, err)

	name := "Carla"
	password := "otra-clave"
	role := auth.RoleClient
	phone := auth.PhoneIdentity("+525512345678")
	updated, err := f.svc.UpdateAccount(ctx, res.Account.ID, auth.UpdateAccountInput{
		FirstName: &name,
		Password:  &password,
		Role:      &role,
		Identity:  &phone,
	})
	require.NoError(t, err)
	assert.Equal(t, "Carla", updated.FirstName)
	assert.Equal(t, "López", updated.LastName)
	assert.Equal(t, auth.RoleClient, updated.Role)
	assert.Nil(t, updated.Email)
	require.NotNil(t, updated.Phone)
	assert.Equal(t, "+525512345678", *updated.Phone)
	assert.True(t, updated.IsActive)

	_, err = f.svc.Login(ctx, auth.LoginInput{Identity: phone, Password: "otra-clave"})
	assert.NoError(t, err)
	_, err = f.svc.Login(ctx, auth.LoginInput{Identity: auth.EmailIdentity("a@x.com"), Password: "123456"})
	assertKind(t, err, auth.KindNotFound)

	taken := auth.EmailIdentity("b@x.com")
	_, err = f.svc.UpdateAccount(ctx, res.Account.ID, auth.UpdateAccountInput{Identity: &taken})
	assertKind(t, err, auth.KindConflict)

	_, err = f.svc.UpdateAccount(ctx, 999, auth.UpdateAccountInput{FirstName: &name})
	assertKind(t, err, auth.KindNotFound)
}
