package account

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/medconnect/backend/internal/auth"
	"github.com/medconnect/backend/internal/messaging"
	"github.com/medconnect/backend/internal/users"
)

// UserRepository is the part of the user store the login flows need.
type UserRepository interface {
	Create(ctx context.Context, u *users.User) error
	GetByID(ctx context.Context, id string) (*users.User, error)
	GetByEmail(ctx context.Context, email string) (*users.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	TouchLastLogin(ctx context.Context, id string) error
}

type TokenIssuer interface {
	IssuePair(sub auth.Subject) (*auth.TokenPair, error)
}

type RefreshVerifier interface {
	ParseRefreshToken(token string) (*auth.RefreshClaims, error)
}

// MetricsRecorder records login outcomes.
type MetricsRecorder interface {
	RecordLogin(ctx context.Context, outcome string)
}

// Stores groups the Redis-backed state of the login flows.
type Stores struct {
	Challenges *ChallengeStore
	Tokens     *TokenStore
	Limiter    *LoginLimiter
}

const (
	codeDigits   = 6
	codeHashCost = bcrypt.DefaultCost

	templateWelcome   = "welcome"
	templateTwoFactor = "two_factor_code"
)

// Login outcomes reported to metrics.
const (
	outcomeSuccess         = "success"
	outcomeInvalid         = "invalid_credentials"
	outcomeLocked          = "locked"
	outcomeInactive        = "inactive"
	outcomeChallenge       = "two_factor_pending"
	outcomeChallengeFailed = "two_factor_failed"
)

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// compareDummy spends the same time as a real password check so unknown
// emails cannot be told apart by latency.
func compareDummy(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = auth.HashPassword("not-a-real-password-1")
	})
	auth.CheckPassword(dummyHash, password)
}

func generateCode() (string, error) {
	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

type Service struct {
	users             UserRepository
	issuer            TokenIssuer
	verifier          RefreshVerifier
	challenges        *ChallengeStore
	tokens            *TokenStore
	limiter           *LoginLimiter
	publisher         messaging.PublisherInterface
	metrics           MetricsRecorder
	twoFactorRequired bool
	newCode           func() (string, error)
}

func NewService(repo UserRepository, issuer TokenIssuer, verifier RefreshVerifier, stores Stores,
	publisher messaging.PublisherInterface, metrics MetricsRecorder, twoFactorRequired bool) *Service {
	return &Service{
		users:             repo,
		issuer:            issuer,
		verifier:          verifier,
		challenges:        stores.Challenges,
		tokens:            stores.Tokens,
		limiter:           stores.Limiter,
		publisher:         publisher,
		metrics:           metrics,
		twoFactorRequired: twoFactorRequired,
		newCode:           generateCode,
	}
}

func (s *Service) record(ctx context.Context, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordLogin(ctx, outcome)
	}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*users.User, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &users.User{
		Email:         req.Email,
		PasswordHash:  hash,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		PhoneNumber:   req.PhoneNumber,
		Role:          req.Role,
		Specialty:     req.Specialty,
		LicenseNumber: req.LicenseNumber,
		DateOfBirth:   req.DateOfBirth,
		IsActive:      true,
		IsVerified:    req.Role == auth.RolePatient,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	messaging.Emit(ctx, s.publisher, messaging.EventUserRegistered, messaging.NewEvent(messaging.EventUserRegistered, messaging.UserRegisteredData{
		UserID:    u.ID,
		Email:     u.Email,
		Role:      u.Role,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		CreatedAt: u.CreatedAt,
	}))
	s.requestEmail(ctx, u.Email, templateWelcome, map[string]string{"firstName": u.FirstName})
	return u, nil
}

// Login checks the password and either returns tokens or opens a 2FA challenge.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, ErrMissingCredentials
	}

	locked, err := s.limiter.Locked(ctx, email)
	if err != nil {
		return nil, err
	}
	if locked {
		s.record(ctx, outcomeLocked)
		return nil, ErrAccountLocked
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, users.ErrUserNotFound) {
		compareDummy(req.Password)
		return nil, s.failLogin(ctx, email)
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		return nil, s.failLogin(ctx, email)
	}
	if !u.IsActive {
		s.record(ctx, outcomeInactive)
		return nil, ErrAccountInactive
	}
	if err := s.limiter.Reset(ctx, email); err != nil {
		log.Warn().Err(err).Str("user_id", u.ID).Msg("failed to reset login failures")
	}

	if s.twoFactorRequired || u.TwoFactorEnabled {
		return s.startChallenge(ctx, u)
	}
	return s.complete(ctx, u)
}

func (s *Service) failLogin(ctx context.Context, email string) error {
	s.record(ctx, outcomeInvalid)
	n, err := s.limiter.Fail(ctx, email)
	if err != nil {
		log.Warn().Err(err).Msg("failed to record login failure")
		return ErrInvalidCredentials
	}
	if n >= s.limiter.maxFailures {
		log.Warn().Str("email", email).Int("failures", n).Msg("login locked after repeated failures")
	}
	return ErrInvalidCredentials
}

func (s *Service) newChallengeCode() (code, hash string, err error) {
	code, err = s.newCode()
	if err != nil {
		return "", "", err
	}
	h, err := bcrypt.GenerateFromPassword([]byte(code), codeHashCost)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash code: %w", err)
	}
	return code, string(h), nil
}

func (s *Service) startChallenge(ctx context.Context, u *users.User) (*LoginResult, error) {
	code, hash, err := s.newChallengeCode()
	if err != nil {
		return nil, err
	}
	c, err := s.challenges.Create(ctx, u.ID, hash)
	if err != nil {
		return nil, err
	}
	s.sendCode(ctx, u, code)
	s.record(ctx, outcomeChallenge)
	return &LoginResult{TwoFactorRequired: true, ChallengeID: c.ID, ExpiresAt: &c.ExpiresAt}, nil
}

func (s *Service) sendCode(ctx context.Context, u *users.User, code string) {
	s.requestEmail(ctx, u.Email, templateTwoFactor, map[string]string{
		"firstName":        u.FirstName,
		"code":             code,
		"expiresInMinutes": strconv.Itoa(int(s.challenges.ttl / time.Minute)),
	})
}

func (s *Service) requestEmail(ctx context.Context, to, template string, params map[string]string) {
	messaging.Emit(ctx, s.publisher, messaging.EventEmailRequested, messaging.NewEvent(messaging.EventEmailRequested, messaging.EmailRequestedData{
		To:       to,
		Template: template,
		Params:   params,
	}))
}

func (s *Service) issue(ctx context.Context, u *users.User) (*auth.TokenPair, error) {
	pair, err := s.issuer.IssuePair(auth.Subject{UserID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Allow(ctx, u.ID, pair.RefreshJTI, pair.RefreshExpiresAt); err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *Service) complete(ctx context.Context, u *users.User) (*LoginResult, error) {
	pair, err := s.issue(ctx, u)
	if err != nil {
		return nil, err
	}
	if err := s.users.TouchLastLogin(ctx, u.ID); err != nil {
		log.Warn().Err(err).Str("user_id", u.ID).Msg("failed to update last login")
	}
	s.record(ctx, outcomeSuccess)
	log.Info().Str("user_id", u.ID).Str("role", u.Role).Msg("user logged in")
	return &LoginResult{User: u, TokenPair: pair}, nil
}

// VerifyTwoFactor completes a login with the emailed code.
func (s *Service) VerifyTwoFactor(ctx context.Context, req VerifyTwoFactorRequest) (*LoginResult, error) {
	req.ChallengeID = strings.TrimSpace(req.ChallengeID)
	req.Code = strings.TrimSpace(req.Code)
	if req.ChallengeID == "" || req.Code == "" {
		return nil, ErrMissingChallenge
	}

	c, err := s.challenges.Get(ctx, req.ChallengeID)
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(c.CodeHash), []byte(req.Code)) != nil {
		s.record(ctx, outcomeChallengeFailed)
		left, err := s.challenges.FailAttempt(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		if left == 0 {
			return nil, ErrChallengeExpired
		}
		return nil, ErrInvalidCode
	}

	consumed, err := s.challenges.Consume(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, ErrChallengeExpired
	}

	u, err := s.users.GetByID(ctx, c.UserID)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		s.record(ctx, outcomeInactive)
		return nil, ErrAccountInactive
	}
	return s.complete(ctx, u)
}

// ResendTwoFactor sends a fresh code for a live challenge.
func (s *Service) ResendTwoFactor(ctx context.Context, req ResendTwoFactorRequest) (*LoginResult, error) {
	id := strings.TrimSpace(req.ChallengeID)
	if id == "" {
		return nil, ErrMissingChallenge
	}
	c, err := s.challenges.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, c.UserID)
	if err != nil {
		return nil, err
	}

	code, hash, err := s.newChallengeCode()
	if err != nil {
		return nil, err
	}
	c, err = s.challenges.Replace(ctx, id, hash)
	if err != nil {
		return nil, err
	}
	s.sendCode(ctx, u, code)
	return &LoginResult{TwoFactorRequired: true, ChallengeID: c.ID, ExpiresAt: &c.ExpiresAt}, nil
}

// Refresh rotates a refresh token. Presenting an already rotated token
// revokes every session of the user.
func (s *Service) Refresh(ctx context.Context, req RefreshRequest) (*auth.TokenPair, error) {
	token := strings.TrimSpace(req.RefreshToken)
	if token == "" {
		return nil, ErrMissingRefreshToken
	}
	claims, err := s.verifier.ParseRefreshToken(token)
	if err != nil {
		return nil, ErrInvalidRefresh
	}

	outcome, err := s.tokens.Consume(ctx, claims.UserID, claims.JTI, claims.ExpiresAt)
	if err != nil {
		return nil, err
	}
	switch outcome {
	case refreshReused:
		if err := s.tokens.RevokeAll(ctx, claims.UserID); err != nil {
			return nil, err
		}
		log.Warn().Str("user_id", claims.UserID).Str("jti", claims.JTI).Msg("refresh token reuse detected")
		return nil, ErrRefreshReused
	case refreshUnknown:
		return nil, ErrInvalidRefresh
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, users.ErrUserNotFound) {
		return nil, ErrInvalidRefresh
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		if err := s.tokens.RevokeAll(ctx, u.ID); err != nil {
			log.Warn().Err(err).Str("user_id", u.ID).Msg("failed to revoke tokens of inactive user")
		}
		return nil, ErrAccountInactive
	}
	return s.issue(ctx, u)
}

// Logout revokes the refresh token. Unknown or invalid tokens are ignored.
func (s *Service) Logout(ctx context.Context, req RefreshRequest) error {
	claims, err := s.verifier.ParseRefreshToken(strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return nil
	}
	_, err = s.tokens.Consume(ctx, claims.UserID, claims.JTI, claims.ExpiresAt)
	return err
}

func (s *Service) Me(ctx context.Context, principal *auth.Principal) (*users.User, error) {
	return s.users.GetByID(ctx, principal.UserID)
}

// ChangePassword replaces the password and ends every other session.
func (s *Service) ChangePassword(ctx context.Context, principal *auth.Principal, req ChangePasswordRequest) error {
	if req.CurrentPassword == "" {
		return ErrWrongPassword
	}
	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		return weakPassword(err)
	}
	if req.NewPassword == req.CurrentPassword {
		return ErrSamePassword
	}

	u, err := s.users.GetByID(ctx, principal.UserID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(u.PasswordHash, req.CurrentPassword) {
		return ErrWrongPassword
	}
	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}
	if err := s.tokens.RevokeAll(ctx, u.ID); err != nil {
		return err
	}
	log.Info().Str("user_id", u.ID).Msg("password changed")
	return nil
}
