package app

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"placementcell/internal/common"
	"placementcell/internal/domain/analytics"
	"placementcell/internal/domain/auth"
	"placementcell/internal/domain/student"
	"placementcell/internal/domain/user"
	"placementcell/internal/security"
)

// AuthService issues and rotates credentials for every role.
type AuthService struct {
	users         user.Repository
	students      student.Repository
	refreshTokens auth.RefreshTokenRepository
	analytics     analytics.Repository
	jwtProvider   *security.JWTProvider
	google        *security.GoogleProvider
	googleDomain  string
	logger        Logger
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewAuthService(users user.Repository, students student.Repository, refreshTokens auth.RefreshTokenRepository, analytics analytics.Repository, jwtProvider *security.JWTProvider, logger Logger, accessTTL, refreshTTL time.Duration) *AuthService {
	return &AuthService{
		users:         users,
		students:      students,
		refreshTokens: refreshTokens,
		analytics:     analytics,
		jwtProvider:   jwtProvider,
		logger:        logger,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// WithGoogle enables Google sign-in, optionally restricted to one hosted domain.
func (s *AuthService) WithGoogle(provider *security.GoogleProvider, allowedDomain string) *AuthService {
	s.google = provider
	s.googleDomain = strings.ToLower(strings.TrimSpace(allowedDomain))
	return s
}

type Session struct {
	Tokens auth.TokenPair
	User   *user.User
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	account, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if common.Is(err, common.CodeNotFound) {
			track(ctx, s.analytics, "auth.login_failed", "", map[string]string{"reason": "unknown_email"})
			return nil, common.NewError(common.CodeUnauthorized, "invalid email or password", nil)
		}
		return nil, err
	}
	if !security.CheckPassword(account.PasswordHash, password) {
		s.logInfo(fmt.Sprintf("login failed user_id=%s", account.ID))
		track(ctx, s.analytics, "auth.login_failed", account.ID, map[string]string{"reason": "bad_password"})
		return nil, common.NewError(common.CodeUnauthorized, "invalid email or password", nil)
	}
	return s.startSession(ctx, account, "password")
}

type RegisterInput struct {
	Email      string
	Password   string
	Name       string
	RollNumber string
}

// Register creates an account for a student already on the placement roll.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := normalizeEmail(in.Email)
	roll := normalizeRollNumber(in.RollNumber)
	fields := map[string]string{}
	if _, err := mail.ParseAddress(email); err != nil {
		fields["email"] = "valid email is required"
	}
	if roll == "" {
		fields["roll_number"] = "roll_number is required"
	}
	if len(in.Password) < security.MinPasswordLength {
		fields["password"] = "password must be at least 8 characters"
	}
	if len(fields) > 0 {
		return nil, common.NewValidationError("invalid request", fields)
	}
	record, err := s.students.GetByRollNumber(ctx, roll)
	if err != nil {
		if common.Is(err, common.CodeNotFound) {
			return nil, common.NewError(common.CodeValidation, "roll number is not registered with the placement cell", nil)
		}
		return nil, err
	}
	if !strings.EqualFold(record.Email, email) {
		return nil, common.NewError(common.CodeValidation, "email does not match placement records", nil)
	}
	if record.UserID != nil {
		return nil, common.NewError(common.CodeConflict, "account already exists for this roll number", nil)
	}
	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, common.NewValidationError("invalid request", map[string]string{"password": err.Error()})
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = record.Name
	}
	dept := record.DepartmentID
	account, err := s.users.CreateForStudent(ctx, user.User{
		Email:        email,
		Name:         name,
		Role:         user.RoleStudent,
		DepartmentID: common.UUIDPtr(dept),
		PasswordHash: hash,
		IsActive:     true,
	}, record.ID)
	if err != nil {
		return nil, err
	}
	track(ctx, s.analytics, "auth.registered", account.ID, map[string]string{"student_id": record.ID.String()})
	return s.startSession(ctx, account, "register")
}

func (s *AuthService) Refresh(ctx context.Context, token string) (*Session, error) {
	stored, err := s.refreshTokens.GetByToken(ctx, HashToken(token))
	if err != nil {
		if common.Is(err, common.CodeNotFound) {
			return nil, common.NewError(common.CodeUnauthorized, "invalid refresh token", nil)
		}
		return nil, err
	}
	now := s.now().UTC()
	if stored.RevokedAt != nil {
		// A revoked token being replayed means it leaked; cut every session of the user.
		_ = s.refreshTokens.RevokeAll(ctx, stored.UserID, now)
		s.logInfo(fmt.Sprintf("revoked refresh token replayed user_id=%s", stored.UserID))
		return nil, common.NewError(common.CodeUnauthorized, "refresh token revoked", nil)
	}
	if stored.ExpiresAt.Before(now) {
		return nil, common.NewError(common.CodeUnauthorized, "refresh token expired", nil)
	}
	account, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, common.NewError(common.CodeForbidden, "account is deactivated", nil)
	}
	if err := s.refreshTokens.Revoke(ctx, stored.Token, now); err != nil {
		return nil, err
	}
	pair, err := s.issueTokens(ctx, account)
	if err != nil {
		return nil, err
	}
	track(ctx, s.analytics, "auth.token_refreshed", account.ID, nil)
	return &Session{Tokens: *pair, User: account}, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return common.NewValidationError("invalid request", map[string]string{"refresh_token": "refresh_token is required"})
	}
	err := s.refreshTokens.Revoke(ctx, HashToken(token), s.now().UTC())
	if err != nil && !common.Is(err, common.CodeNotFound) {
		return err
	}
	s.logInfo("user logged out")
	track(ctx, s.analytics, "auth.logged_out", "", nil)
	return nil
}

func (s *AuthService) Me(ctx context.Context, userID common.UUID) (*user.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *AuthService) ChangePassword(ctx context.Context, userID common.UUID, current, next string) error {
	account, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !security.CheckPassword(account.PasswordHash, current) {
		return common.NewError(common.CodeUnauthorized, "current password is incorrect", nil)
	}
	if current == next {
		return common.NewValidationError("invalid request", map[string]string{"new_password": "new password must differ from the current one"})
	}
	hash, err := security.HashPassword(next)
	if err != nil {
		return common.NewValidationError("invalid request", map[string]string{"new_password": err.Error()})
	}
	if err := s.users.SetPassword(ctx, userID, hash); err != nil {
		return err
	}
	if err := s.refreshTokens.RevokeAll(ctx, userID, s.now().UTC()); err != nil {
		return err
	}
	track(ctx, s.analytics, "auth.password_changed", userID, nil)
	return nil
}

func (s *AuthService) GoogleEnabled() bool {
	return s.google != nil
}

func (s *AuthService) GoogleLoginURL() (string, error) {
	if s.google == nil {
		return "", common.NewError(common.CodeNotFound, "google sign-in is not enabled", nil)
	}
	return s.google.AuthCodeURL(), nil
}

// GoogleCallback signs in an existing account whose email matches the verified Google identity.
func (s *AuthService) GoogleCallback(ctx context.Context, state, code string) (*Session, error) {
	if s.google == nil {
		return nil, common.NewError(common.CodeNotFound, "google sign-in is not enabled", nil)
	}
	info, err := s.google.Exchange(ctx, state, code)
	if err != nil {
		if errors.Is(err, security.ErrInvalidState) {
			return nil, common.NewError(common.CodeUnauthorized, "invalid oauth state", nil)
		}
		return nil, common.NewError(common.CodeUnauthorized, "google sign-in failed", err)
	}
	if !info.VerifiedEmail {
		return nil, common.NewError(common.CodeUnauthorized, "google email is not verified", nil)
	}
	if s.googleDomain != "" && !strings.HasSuffix(info.Email, "@"+s.googleDomain) {
		return nil, common.NewError(common.CodeForbidden, "email domain is not allowed", nil)
	}
	account, err := s.users.GetByEmail(ctx, info.Email)
	if err != nil {
		if common.Is(err, common.CodeNotFound) {
			return nil, common.NewError(common.CodeForbidden, "no placement account for this email", nil)
		}
		return nil, err
	}
	return s.startSession(ctx, account, "google")
}

// EnsureBootstrapAdmin creates the first admin so a fresh deployment can be administered.
func (s *AuthService) EnsureBootstrapAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}
	count, err := s.users.CountByRole(ctx, user.RoleAdmin)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	hash, err := security.HashPassword(password)
	if err != nil {
		return err
	}
	account, err := s.users.Create(ctx, user.User{Email: email, Name: "Administrator", Role: user.RoleAdmin, PasswordHash: hash, IsActive: true})
	if err != nil {
		return err
	}
	s.logInfo(fmt.Sprintf("bootstrap admin created user_id=%s", account.ID))
	return nil
}

func (s *AuthService) startSession(ctx context.Context, account *user.User, method string) (*Session, error) {
	if !account.IsActive {
		return nil, common.NewError(common.CodeForbidden, "account is deactivated", nil)
	}
	pair, err := s.issueTokens(ctx, account)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := s.users.TouchLogin(ctx, account.ID, now); err == nil {
		account.LastLoginAt = &now
	}
	s.logInfo(fmt.Sprintf("user logged in user_id=%s method=%s", account.ID, method))
	track(ctx, s.analytics, "auth.logged_in", account.ID, map[string]string{"method": method, "role": string(account.Role)})
	return &Session{Tokens: *pair, User: account}, nil
}

func (s *AuthService) issueTokens(ctx context.Context, account *user.User) (*auth.TokenPair, error) {
	dept := ""
	if account.DepartmentID != nil {
		dept = account.DepartmentID.String()
	}
	accessToken, expiresAt, err := s.jwtProvider.Generate(account.ID, string(account.Role), dept, s.accessTTL)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to generate access token", err)
	}
	refreshValue, err := generateRefreshToken()
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to generate refresh token", err)
	}
	now := s.now().UTC()
	refresh := auth.RefreshToken{
		ID:        common.NewUUID(),
		UserID:    account.ID,
		Token:     HashToken(refreshValue),
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	}
	if err := s.refreshTokens.Store(ctx, refresh); err != nil {
		return nil, err
	}
	return &auth.TokenPair{AccessToken: accessToken, RefreshToken: refreshValue, ExpiresAt: expiresAt}, nil
}

func generateRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashToken is the at-rest form of refresh tokens.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeRollNumber(roll string) string {
	return strings.ToUpper(strings.TrimSpace(roll))
}

func (s *AuthService) logInfo(msg string) {
	if s.logger == nil {
		return
	}
	s.logger.Info(msg)
}
