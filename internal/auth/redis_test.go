package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coachfit/internal/auth"
	"coachfit/internal/testutil"
)

func TestRedisCodeStore(t *testing.T) {
	ctx := context.Background()
	mr, client := testutil.NewRedis(t)
	store := auth.NewRedisCodeStore(client, "coachfit:")

	require.NoError(t, store.Put(ctx, 12, auth.PurposeVerify, "hash-1", 15*time.Minute))
	assert.True(t, mr.Exists("coachfit:verify:12"))
	assert.Equal(t, 15*time.Minute, mr.TTL("coachfit:verify:12"))

	got, ok, err := store.Get(ctx, 12, auth.PurposeVerify)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hash-1", got)

	_, ok, err = store.Get(ctx, 12, auth.PurposeReset)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, 12, auth.PurposeVerify, "hash-2", 15*time.Minute))
	got, _, err = store.Get(ctx, 12, auth.PurposeVerify)
	require.NoError(t, err)
	assert.Equal(t, "hash-2", got)

	mr.FastForward(15 * time.Minute)
	_, ok, err = store.Get(ctx, 12, auth.PurposeVerify)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, 12, auth.PurposeReset, "hash-3", time.Hour))
	require.NoError(t, store.Delete(ctx, 12, auth.PurposeReset))
	assert.False(t, mr.Exists("coachfit:reset_password:12"))
}

func TestRedisCodeStoreError(t *testing.T) {
	mr, client := testutil.NewRedis(t)
	store := auth.NewRedisCodeStore(client, "")
	mr.SetError("LOADING")

	_, _, err := store.Get(context.Background(), 1, auth.PurposeVerify)
	assert.Error(t, err)
}

func TestLoginBan(t *testing.T) {
	ctx := context.Background()
	mr, client := testutil.NewRedis(t)
	rl := auth.NewRateLimiter(client, "rl:")
	ip := "203.0.113.7"

	for i := 1; i < 5; i++ {
		banned, err := rl.RegisterLoginFailure(ctx, ip)
		require.NoError(t, err)
		assert.False(t, banned, "attempt %d", i)
	}
	assert.False(t, rl.IsIPBanned(ctx, ip))

	banned, err := rl.RegisterLoginFailure(ctx, ip)
	require.NoError(t, err)
	assert.True(t, banned)
	assert.True(t, rl.IsIPBanned(ctx, ip))
	assert.False(t, rl.IsIPBanned(ctx, "198.51.100.1"))

	mr.FastForward(time.Hour)
	assert.False(t, rl.IsIPBanned(ctx, ip))
}

func TestLoginResetClearsAttempts(t *testing.T) {
	ctx := context.Background()
	_, client := testutil.NewRedis(t)
	rl := auth.NewRateLimiter(client, "")
	ip := "203.0.113.7"

	for range 4 {
		_, err := rl.RegisterLoginFailure(ctx, ip)
		require.NoError(t, err)
	}
	rl.ResetLogin(ctx, ip)

	banned, err := rl.RegisterLoginFailure(ctx, ip)
	require.NoError(t, err)
	assert.False(t, banned)
}

func TestVerifyAttempts(t *testing.T) {
	ctx := context.Background()
	_, client := testutil.NewRedis(t)
	rl := auth.NewRateLimiter(client, "")
	id := auth.EmailIdentity("a@x.com")

	for i := 1; i <= 5; i++ {
		locked, _, err := rl.RegisterVerifyAttempt(ctx, id)
		require.NoError(t, err)
		assert.False(t, locked, "attempt %d", i)
	}
	locked, ttl, err := rl.RegisterVerifyAttempt(ctx, id)
	require.NoError(t, err)
	assert.True(t, locked)
	assert.Positive(t, ttl)

	rl.ResetVerify(ctx, id)
	locked, _, err = rl.RegisterVerifyAttempt(ctx, id)
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestSignupAttempts(t *testing.T) {
	ctx := context.Background()
	_, client := testutil.NewRedis(t)
	rl := auth.NewRateLimiter(client, "")

	for i := 1; i <= 10; i++ {
		locked, _, err := rl.RegisterSignupAttempt(ctx, "203.0.113.7")
		require.NoError(t, err)
		assert.False(t, locked, "attempt %d", i)
	}
	locked, _, err := rl.RegisterSignupAttempt(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, locked)

	locked, _, err = rl.RegisterSignupAttempt(ctx, "")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestCooldown(t *testing.T) {
	ctx := context.Background()
	mr, client := testutil.NewRedis(t)
	rl := auth.NewRateLimiter(client, "")
	id := auth.PhoneIdentity("+525512345678")

	assert.Zero(t, rl.CooldownTTL(ctx, "resend", id))
	rl.SetCooldown(ctx, "resend", id, auth.CodeCooldown)
	assert.Equal(t, auth.CodeCooldown, rl.CooldownTTL(ctx, "resend", id))
	assert.Zero(t, rl.CooldownTTL(ctx, "reset", id))

	mr.FastForward(auth.CodeCooldown)
	assert.Zero(t, rl.CooldownTTL(ctx, "resend", id))
}

func TestAuditLogger(t *testing.T) {
	ctx := context.Background()
	mr, client := testutil.NewRedis(t)
	audit := &auth.AuditLogger{Redis: client, Prefix: "coachfit:", MaxLen: 3}

	for _, event := range []string{"register", "verify", "login", "refresh"} {
		require.NoError(t, audit.Log(ctx, auth.AuditEvent{EventType: event, AccountID: 5, IP: "203.0.113.7"}))
	}
	require.NoError(t, audit.Log(ctx, auth.AuditEvent{EventType: "login_failed", IP: "203.0.113.7"}))

	items, err := mr.List("coachfit:audit:5")
	require.NoError(t, err)
	assert.Len(t, items, 3)

	events, err := audit.Recent(ctx, 5, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "verify", events[0].EventType)
	assert.Equal(t, "refresh", events[2].EventType)
	assert.False(t, events[2].Timestamp.IsZero())

	anon, err := audit.Recent(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, anon, 1)
	assert.Equal(t, "login_failed", anon[0].EventType)
}

func TestChannelNotifier(t *testing.T) {
	ctx := context.Background()
	mail, sms := &testutil.Notifier{}, &testutil.Notifier{}
	n := auth.ChannelNotifier{Email: mail, SMS: sms}

	require.NoError(t, n.SendCode(ctx, auth.CodeMessage{Recipient: auth.EmailIdentity("a@x.com"), Code: "111111"}))
	require.NoError(t, n.SendCode(ctx, auth.CodeMessage{Recipient: auth.PhoneIdentity("+525512345678"), Code: "222222"}))
	assert.Len(t, mail.Sent(), 1)
	assert.Len(t, sms.Sent(), 1)

	assert.Error(t, auth.ChannelNotifier{Email: mail}.SendCode(ctx, auth.CodeMessage{Recipient: auth.PhoneIdentity("+525512345678")}))
}
