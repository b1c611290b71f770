package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"coachfit/internal/i18n"
)

type ServiceConfig struct {
	VerifyCodeTTL       time.Duration
	ResetCodeTTL        time.Duration
	CallTimeout         time.Duration
	VerificationEnabled bool
}

// Service owns every account state transition.
type Service struct {
	accounts AccountStore
	codes    CodeStore
	notifier Notifier
	hasher   PasswordHasher
	tokens   *TokenIssuer
	cfg      ServiceConfig
	logger   *slog.Logger
}

func NewService(accounts AccountStore, codes CodeStore, notifier Notifier, hasher PasswordHasher, tokens *TokenIssuer, cfg ServiceConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		accounts: accounts,
		codes:    codes,
		notifier: notifier,
		hasher:   hasher,
		tokens:   tokens,
		cfg:      cfg,
		logger:   logger,
	}
}

type RegisterResult struct {
	Account    *Account
	MessageKey string
}

type LoginResult struct {
	Account *Account
	Token   string
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	existing, err := s.findByIdentity(ctx, in.Identity)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, conflictError(in.Identity)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	cctx, cancel := s.bounded(ctx)
	account, err := s.accounts.Create(cctx, NewAccount{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Identity:     in.Identity,
		PasswordHash: hash,
		Role:         in.Role,
		City:         in.City,
		State:        in.State,
		Active:       !s.cfg.VerificationEnabled,
	})
	cancel()
	if errors.Is(err, ErrDuplicateIdentity) {
		return nil, conflictError(in.Identity)
	}
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	if !s.cfg.VerificationEnabled {
		return &RegisterResult{Account: account, MessageKey: "register.no_verification"}, nil
	}

	// The account exists at this point; a lost code can be recovered with a resend.
	if err := s.issueCode(ctx, account, PurposeVerify, s.cfg.VerifyCodeTTL); err != nil {
		s.logger.Error("store verification code", "account_id", account.ID, "err", err)
	}
	return &RegisterResult{Account: account, MessageKey: channelKey("register.", in.Identity)}, nil
}

func (s *Service) Verify(ctx context.Context, in VerifyInput) error {
	account, err := s.findByIdentity(ctx, in.Identity)
	if err != nil {
		return err
	}
	if account == nil {
		return newError(KindNotFound, "account.not_found")
	}
	if account.IsActive {
		return newError(KindAlreadyVerified, "verify.already")
	}

	stored, ok, err := s.getCode(ctx, account.ID, PurposeVerify)
	if err != nil {
		return err
	}
	if !ok {
		return newError(KindExpired, "verify.expired")
	}
	if !codeMatches(stored, in.Code) {
		return newError(KindMismatch, "verify.mismatch")
	}

	cctx, cancel := s.bounded(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(cctx)
	g.Go(func() error {
		return s.accounts.SetActive(gctx, account.ID, true)
	})
	g.Go(func() error {
		return s.codes.Delete(gctx, account.ID, PurposeVerify)
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("activate account %d: %w", account.ID, err)
	}
	return nil
}

// ResendCode replaces the live verification code. It returns the message key.
func (s *Service) ResendCode(ctx context.Context, id Identity) (string, error) {
	account, err := s.findByIdentity(ctx, id)
	if err != nil {
		return "", err
	}
	if account == nil {
		return "", newError(KindNotFound, "account.not_found")
	}
	if account.IsActive {
		return "", newError(KindAlreadyVerified, "verify.already")
	}
	if err := s.issueCode(ctx, account, PurposeVerify, s.cfg.VerifyCodeTTL); err != nil {
		return "", err
	}
	return channelKey("resend.", id), nil
}

func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	account, err := s.findByIdentity(ctx, in.Identity)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, newError(KindNotFound, "login.invalid")
	}
	if !account.IsActive {
		return nil, s.inactiveError()
	}
	if !s.hasher.Compare(account.PasswordHash, in.Password) {
		return nil, newError(KindNotFound, "login.invalid")
	}

	token, err := s.tokens.Issue(account)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Account: account, Token: token}, nil
}

func (s *Service) RequestReset(ctx context.Context, id Identity) (string, error) {
	account, err := s.findByIdentity(ctx, id)
	if err != nil {
		return "", err
	}
	if account == nil {
		return "", newError(KindNotFound, "account.not_found")
	}
	if err := s.issueCode(ctx, account, PurposeReset, s.cfg.ResetCodeTTL); err != nil {
		return "", err
	}
	return channelKey("reset.", id), nil
}

func (s *Service) ChangePassword(ctx context.Context, in ChangePasswordInput) error {
	account, err := s.findByIdentity(ctx, in.Identity)
	if err != nil {
		return err
	}
	if account == nil {
		return newError(KindNotFound, "account.not_found")
	}

	stored, ok, err := s.getCode(ctx, account.ID, PurposeReset)
	if err != nil {
		return err
	}
	if !ok {
		return newError(KindCodeNotFound, "reset.code_not_found")
	}
	if !codeMatches(stored, in.Code) {
		cctx, cancel := s.bounded(ctx)
		defer cancel()
		if err := s.codes.Delete(cctx, account.ID, PurposeReset); err != nil {
			return fmt.Errorf("discard reset code: %w", err)
		}
		return newError(KindCodeIncorrect, "reset.code_incorrect")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	cctx, cancel := s.bounded(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(cctx)
	g.Go(func() error {
		return s.accounts.UpdatePassword(gctx, account.ID, hash)
	})
	g.Go(func() error {
		return s.codes.Delete(gctx, account.ID, PurposeReset)
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("change password for %d: %w", account.ID, err)
	}
	return nil
}

// Refresh exchanges a correctly signed token, expired or not, for a new one
// built from the account's current state. Inactive accounts cannot refresh.
func (s *Service) Refresh(ctx context.Context, authorization string) (string, error) {
	raw, err := ParseBearer(authorization)
	if err != nil {
		return "", err
	}
	claims, err := s.tokens.ParseIgnoringExpiry(raw)
	if err != nil {
		return "", &Error{Kind: KindTokenInvalid, Key: "token.invalid", Err: err}
	}
	account, err := s.GetAccount(ctx, claims.AccountID)
	if err != nil {
		return "", err
	}
	if !account.IsActive {
		return "", s.inactiveError()
	}
	return s.tokens.Issue(account)
}

func (s *Service) GetAccount(ctx context.Context, id int64) (*Account, error) {
	cctx, cancel := s.bounded(ctx)
	defer cancel()
	account, err := s.accounts.FindByID(cctx, id)
	if err != nil {
		return nil, fmt.Errorf("find account %d: %w", id, err)
	}
	if account == nil {
		return nil, newError(KindNotFound, "account.not_found")
	}
	return account, nil
}

// ToggleActive flips is_active and returns the new value.
func (s *Service) ToggleActive(ctx context.Context, id int64) (bool, error) {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return false, err
	}
	active := !account.IsActive

	cctx, cancel := s.bounded(ctx)
	defer cancel()
	err = s.accounts.SetActive(cctx, id, active)
	if errors.Is(err, ErrAccountNotFound) {
		return false, newError(KindNotFound, "account.not_found")
	}
	if err != nil {
		return false, fmt.Errorf("set active %d: %w", id, err)
	}
	return active, nil
}

// CreateAccount adds an account on behalf of a coach. It is active at once and
// no verification code is sent.
func (s *Service) CreateAccount(ctx context.Context, in RegisterInput) (*Account, error) {
	existing, err := s.findByIdentity(ctx, in.Identity)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, conflictError(in.Identity)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	cctx, cancel := s.bounded(ctx)
	defer cancel()
	account, err := s.accounts.Create(cctx, NewAccount{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Identity:     in.Identity,
		PasswordHash: hash,
		Role:         in.Role,
		City:         in.City,
		State:        in.State,
		Active:       true,
	})
	if errors.Is(err, ErrDuplicateIdentity) {
		return nil, conflictError(in.Identity)
	}
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return account, nil
}

// UpdateAccount applies the given changes. A new email or phone replaces the
// account's identity; the other channel is cleared.
func (s *Service) UpdateAccount(ctx context.Context, id int64, in UpdateAccountInput) (*Account, error) {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.FirstName != nil {
		account.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		account.LastName = *in.LastName
	}
	if in.City != nil {
		account.City = in.City
	}
	if in.State != nil {
		account.State = in.State
	}
	if in.Role != nil {
		account.Role = *in.Role
	}
	if in.Identity != nil && *in.Identity != account.Identity() {
		other, err := s.findByIdentity(ctx, *in.Identity)
		if err != nil {
			return nil, err
		}
		if other != nil && other.ID != account.ID {
			return nil, conflictError(*in.Identity)
		}
		value := in.Identity.Value
		account.Email, account.Phone = nil, nil
		if in.Identity.Channel == ChannelEmail {
			account.Email = &value
		} else {
			account.Phone = &value
		}
	}
	if in.Password != nil {
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		account.PasswordHash = hash
	}

	cctx, cancel := s.bounded(ctx)
	defer cancel()
	updated, err := s.accounts.Update(cctx, account)
	switch {
	case errors.Is(err, ErrAccountNotFound):
		return nil, newError(KindNotFound, "account.not_found")
	case errors.Is(err, ErrDuplicateIdentity):
		return nil, conflictError(account.Identity())
	case err != nil:
		return nil, fmt.Errorf("update account %d: %w", id, err)
	}
	return updated, nil
}

// issueCode stores a fresh code and dispatches it. Only storage failures are
// returned; delivery failures are logged.
func (s *Service) issueCode(ctx context.Context, account *Account, purpose Purpose, ttl time.Duration) error {
	code, err := GenerateCode()
	if err != nil {
		return err
	}

	cctx, cancel := s.bounded(ctx)
	err = s.codes.Put(cctx, account.ID, purpose, HashString(code), ttl)
	cancel()
	if err != nil {
		return fmt.Errorf("store %s code: %w", purpose, err)
	}

	msg := CodeMessage{
		Recipient: account.Identity(),
		FirstName: account.FirstName,
		Code:      code,
		Purpose:   purpose,
		TTL:       ttl,
		Locale:    i18n.FromContext(ctx),
	}
	dctx, dcancel := s.bounded(context.WithoutCancel(ctx))
	defer dcancel()
	if err := s.notifier.SendCode(dctx, msg); err != nil {
		s.logger.Warn("code dispatch failed",
			"account_id", account.ID,
			"purpose", purpose,
			"channel", msg.Recipient.Channel,
			"err", err,
		)
	}
	return nil
}

func (s *Service) findByIdentity(ctx context.Context, id Identity) (*Account, error) {
	cctx, cancel := s.bounded(ctx)
	defer cancel()
	account, err := s.accounts.FindByIdentity(cctx, id)
	if err != nil {
		return nil, fmt.Errorf("find account by %s: %w", id.Channel, err)
	}
	return account, nil
}

func (s *Service) getCode(ctx context.Context, accountID int64, purpose Purpose) (string, bool, error) {
	cctx, cancel := s.bounded(ctx)
	defer cancel()
	stored, ok, err := s.codes.Get(cctx, accountID, purpose)
	if err != nil {
		return "", false, fmt.Errorf("read %s code: %w", purpose, err)
	}
	return stored, ok, nil
}

func (s *Service) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.CallTimeout)
}

func (s *Service) inactiveError() *Error {
	if s.cfg.VerificationEnabled {
		return newError(KindForbidden, "login.not_verified")
	}
	return newError(KindForbidden, "login.disabled")
}

func conflictError(id Identity) *Error {
	return newError(KindConflict, channelKey("register.conflict_", id))
}

func channelKey(prefix string, id Identity) string {
	return prefix + string(id.Channel)
}
