package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	loginMaxAttempts  = 5
	loginAttemptTTL   = 10 * time.Minute
	loginBanTTL       = 1 * time.Hour
	verifyMaxAttempts = 5
	verifyAttemptTTL  = 10 * time.Minute
	signupMaxAttempts = 10
	signupAttemptTTL  = 30 * time.Minute

	// CodeCooldown is the minimum gap between two codes sent to one identity.
	CodeCooldown = 60 * time.Second
)

// RateLimiter keeps attempt counters and cooldowns in Redis.
type RateLimiter struct {
	Redis  *redis.Client
	Prefix string
}

func NewRateLimiter(client *redis.Client, prefix string) *RateLimiter {
	return &RateLimiter{Redis: client, Prefix: prefix}
}

func (r *RateLimiter) loginAttemptKey(ip string) string {
	return r.Prefix + "login_attempts:" + ip
}

func (r *RateLimiter) loginBanKey(ip string) string {
	return r.Prefix + "login_ban:" + ip
}

func (r *RateLimiter) verifyAttemptKey(id Identity) string {
	return r.Prefix + "verify_attempts:" + id.String()
}

func (r *RateLimiter) signupAttemptKey(ip string) string {
	return r.Prefix + "register_attempts_ip:" + ip
}

func (r *RateLimiter) cooldownKey(scope string, id Identity) string {
	return r.Prefix + scope + "_cooldown:" + id.String()
}

func (r *RateLimiter) IsIPBanned(ctx context.Context, ip string) bool {
	exists, _ := r.Redis.Exists(ctx, r.loginBanKey(ip)).Result()
	return exists == 1
}

// RegisterLoginFailure counts a failed login and reports whether the IP is now banned.
func (r *RateLimiter) RegisterLoginFailure(ctx context.Context, ip string) (bool, error) {
	key := r.loginAttemptKey(ip)

	attempts, err := r.Redis.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if attempts == 1 {
		r.Redis.Expire(ctx, key, loginAttemptTTL)
	}
	if attempts < loginMaxAttempts {
		return false, nil
	}

	pipe := r.Redis.TxPipeline()
	pipe.Set(ctx, r.loginBanKey(ip), "1", loginBanTTL)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (r *RateLimiter) ResetLogin(ctx context.Context, ip string) {
	r.Redis.Del(ctx, r.loginAttemptKey(ip))
}

// RegisterVerifyAttempt counts a code submission. Once the limit is passed it
// reports locked along with the time left on the window.
func (r *RateLimiter) RegisterVerifyAttempt(ctx context.Context, id Identity) (bool, time.Duration, error) {
	return r.count(ctx, r.verifyAttemptKey(id), verifyMaxAttempts, verifyAttemptTTL)
}

// RegisterSignupAttempt counts registrations from one client IP.
func (r *RateLimiter) RegisterSignupAttempt(ctx context.Context, ip string) (bool, time.Duration, error) {
	if ip == "" {
		return false, 0, nil
	}
	return r.count(ctx, r.signupAttemptKey(ip), signupMaxAttempts, signupAttemptTTL)
}

func (r *RateLimiter) count(ctx context.Context, key string, limit int64, window time.Duration) (bool, time.Duration, error) {
	attempts, err := r.Redis.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if attempts == 1 {
		r.Redis.Expire(ctx, key, window)
	}
	ttl, _ := r.Redis.TTL(ctx, key).Result()
	return attempts > limit, ttl, nil
}

func (r *RateLimiter) ResetVerify(ctx context.Context, id Identity) {
	r.Redis.Del(ctx, r.verifyAttemptKey(id))
}

// CooldownTTL returns the remaining cooldown for scope and identity, zero when none.
func (r *RateLimiter) CooldownTTL(ctx context.Context, scope string, id Identity) time.Duration {
	ttl, err := r.Redis.TTL(ctx, r.cooldownKey(scope, id)).Result()
	if err != nil || ttl < 0 {
		return 0
	}
	return ttl
}

func (r *RateLimiter) SetCooldown(ctx context.Context, scope string, id Identity, ttl time.Duration) {
	r.Redis.Set(ctx, r.cooldownKey(scope, id), "1", ttl)
}
