// internal/domain/user/service.go
package user

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/catalog-backend/internal/config"
	"github.com/your-org/catalog-backend/internal/pkg/apperror"
	"github.com/your-org/catalog-backend/internal/pkg/auth"
	"github.com/your-org/catalog-backend/internal/pkg/validation"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	errBadCredentials  = apperror.Unauthorized("These credentials do not match our records.")
	errBadRefreshToken = apperror.Unauthorized("Invalid or expired refresh token.")
	errUserNotFound    = apperror.NotFound("User not found.")
	errUnknownEmail    = apperror.FieldError("email", "We can't find a user with that email address.")
	errResetThrottled  = apperror.FieldError("email", "Please wait before retrying.")
	errBadResetToken   = apperror.FieldError("email", "This password reset token is invalid.")
)

// Mailer sends the mails triggered by account events
type Mailer interface {
	SendWelcomeEmail(ctx context.Context, email, name string) error
	SendPasswordResetEmail(ctx context.Context, email, name, resetURL string) error
}

// Service handles user business logic
type Service struct {
	db              *gorm.DB
	config          *config.Config
	passwordManager *auth.PasswordManager
	jwtManager      *auth.JWTManager
	blacklist       *auth.Blacklist
	resets          *auth.PasswordResets
	mailer          Mailer
	log             *logrus.Logger
}

// NewService creates a new user service. blacklist, resets and mailer may be
// nil for tools that only provision accounts.
func NewService(db *gorm.DB, cfg *config.Config, blacklist *auth.Blacklist, resets *auth.PasswordResets, mailer Mailer, log *logrus.Logger) *Service {
	return &Service{
		db:              db,
		config:          cfg,
		passwordManager: auth.NewPasswordManager(cfg),
		jwtManager:      auth.NewJWTManager(cfg),
		blacklist:       blacklist,
		resets:          resets,
		mailer:          mailer,
		log:             log,
	}
}

// RegisterRequest represents user registration data
type RegisterRequest struct {
	Name                 string `json:"name" validate:"required,max=255"`
	Email                string `json:"email" validate:"required,email,max=255"`
	Password             string `json:"password" validate:"required"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// LoginRequest represents user login data
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileRequest changes profile fields. Omitted values are kept.
type ProfileRequest struct {
	Name        *string                `json:"name" validate:"omitempty,min=1,max=255"`
	Phone       *string                `json:"phone" validate:"omitempty,max=20"`
	Address     *string                `json:"address" validate:"omitempty,max=255"`
	City        *string                `json:"city" validate:"omitempty,max=100"`
	State       *string                `json:"state" validate:"omitempty,max=100"`
	ZipCode     *string                `json:"zip_code" validate:"omitempty,max=20"`
	Country     *string                `json:"country" validate:"omitempty,max=100"`
	Avatar      *string                `json:"avatar" validate:"omitempty,url,max=500"`
	Preferences map[string]interface{} `json:"preferences"`
}

// PasswordRequest changes the password of the signed-in user
type PasswordRequest struct {
	CurrentPassword      string `json:"current_password" validate:"required"`
	Password             string `json:"password" validate:"required"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// ForgotPasswordRequest asks for a reset link
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest sets a new password with a mailed token
type ResetPasswordRequest struct {
	Token                string `json:"token" validate:"required"`
	Email                string `json:"email" validate:"required,email"`
	Password             string `json:"password" validate:"required"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	User   *User           `json:"user"`
	Tokens *auth.TokenPair `json:"tokens"`
}

// Register creates a new user account and signs it in
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	req.Email = NormalizeEmail(req.Email)

	fields := validation.Struct(req)
	fields = s.checkNewPassword(fields, req.Password, req.PasswordConfirmation)
	if _, taken := fields["email"]; !taken && req.Email != "" {
		exists, err := s.emailTaken(ctx, req.Email)
		if err != nil {
			return nil, err
		}
		if exists {
			fields = validation.Add(fields, "email", "The email has already been taken.")
		}
	}
	if err := validation.Error(fields); err != nil {
		return nil, err
	}

	hashedPassword, err := s.passwordManager.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := User{
		Name:        req.Name,
		Email:       req.Email,
		Password:    hashedPassword,
		IsActive:    true,
		LastLoginAt: &now,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if apperror.IsUniqueViolation(err) {
			return nil, apperror.FieldError("email", "The email has already been taken.")
		}
		s.log.WithError(err).WithField("email", req.Email).Error("failed to create user")
		return nil, apperror.Internal("Registration failed. Please try again.", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID}).Info("👤 user registered")

	if s.mailer != nil {
		if err := s.mailer.SendWelcomeEmail(ctx, user.Email, user.GetDisplayName()); err != nil {
			s.log.WithError(err).WithField("user_id", user.ID).Warn("failed to send welcome email")
		}
	}

	return s.issue(&user)
}

// Login authenticates a user
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	if err := validation.Error(validation.Struct(req)); err != nil {
		return nil, err
	}

	var user User
	err := s.db.WithContext(ctx).
		Where("email = ? AND is_active = ?", NormalizeEmail(req.Email), true).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := s.passwordManager.VerifyPassword(req.Password, user.Password); err != nil {
		s.log.WithField("user_id", user.ID).Warn("failed login attempt")
		return nil, errBadCredentials
	}

	now := time.Now().UTC()
	user.LastLoginAt = &now
	if err := s.db.WithContext(ctx).Model(&user).UpdateColumn("last_login_at", now).Error; err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Warn("failed to record last login")
	}

	return s.issue(&user)
}

// Refresh exchanges a refresh token for a new access token. With rotation
// enabled the old refresh token is revoked and a new one issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, errBadRefreshToken
	}
	if s.blacklist != nil {
		revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check token: %w", err)
		}
		if revoked {
			return nil, errBadRefreshToken
		}
	}

	var user User
	if err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", claims.UserID, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errBadRefreshToken
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if s.config.JWT.RefreshTokenRotation {
		if s.blacklist != nil {
			if err := s.blacklist.Revoke(ctx, claims); err != nil {
				return nil, err
			}
		}
		return s.issue(&user)
	}

	access, err := s.jwtManager.GenerateAccessToken(user.ID, user.Email, user.IsAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	return &AuthResponse{
		User: &user,
		Tokens: &auth.TokenPair{
			AccessToken:  access,
			RefreshToken: refreshToken,
			TokenType:    "Bearer",
			ExpiresIn:    int64(s.config.JWT.AccessTokenExpiry.Seconds()),
		},
	}, nil
}

// Logout revokes the access token and, when given and valid, the refresh token
func (s *Service) Logout(ctx context.Context, access *auth.Claims, refreshToken string) error {
	if s.blacklist == nil {
		return nil
	}
	if err := s.blacklist.Revoke(ctx, access); err != nil {
		return apperror.Internal("Failed to log out. Please try again.", err)
	}
	if refreshToken != "" {
		if claims, err := s.jwtManager.ValidateRefreshToken(refreshToken); err == nil && claims.UserID == access.UserID {
			if err := s.blacklist.Revoke(ctx, claims); err != nil {
				s.log.WithError(err).WithField("user_id", access.UserID).Warn("failed to revoke refresh token")
			}
		}
	}
	return nil
}

// Me returns the active user with the given id
func (s *Service) Me(ctx context.Context, userID uint) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", userID, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// UpdateProfile updates user profile
func (s *Service) UpdateProfile(ctx context.Context, userID uint, req *ProfileRequest) (*User, error) {
	if err := validation.Error(validation.Struct(req)); err != nil {
		return nil, err
	}

	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	for column, value := range map[string]*string{
		"name":     req.Name,
		"phone":    req.Phone,
		"address":  req.Address,
		"city":     req.City,
		"state":    req.State,
		"zip_code": req.ZipCode,
		"country":  req.Country,
		"avatar":   req.Avatar,
	} {
		if value != nil {
			updates[column] = *value
		}
	}
	if req.Preferences != nil {
		updates["preferences"] = datatypes.JSONMap(req.Preferences)
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
			s.log.WithError(err).WithField("user_id", userID).Error("failed to update profile")
			return nil, apperror.Internal("Failed to update profile. Please try again.", err)
		}
	}
	return s.Me(ctx, userID)
}

// UpdatePassword changes the password after checking the current one
func (s *Service) UpdatePassword(ctx context.Context, userID uint, req *PasswordRequest) error {
	fields := validation.Struct(req)
	fields = s.checkNewPassword(fields, req.Password, req.PasswordConfirmation)
	if err := validation.Error(fields); err != nil {
		return err
	}

	user, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.passwordManager.VerifyPassword(req.CurrentPassword, user.Password); err != nil {
		return apperror.FieldError("current_password", "The provided password does not match your current password.")
	}

	hashedPassword, err := s.passwordManager.HashPassword(req.Password)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password", hashedPassword).Error; err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("failed to update password")
		return apperror.Internal("Failed to update password. Please try again.", err)
	}

	s.log.WithField("user_id", userID).Info("🔑 password changed")
	return nil
}

// SendPasswordResetLink mails a single-use reset link to an existing account
func (s *Service) SendPasswordResetLink(ctx context.Context, req *ForgotPasswordRequest) (string, error) {
	req.Email = NormalizeEmail(req.Email)
	if err := validation.Error(validation.Struct(req)); err != nil {
		return "", err
	}
	if s.resets == nil || s.mailer == nil {
		return "", apperror.Internal("Password reset is not available.", errors.New("password resets not configured"))
	}

	var user User
	if err := s.db.WithContext(ctx).Where("email = ? AND is_active = ?", req.Email, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", errUnknownEmail
		}
		return "", fmt.Errorf("failed to find user: %w", err)
	}

	token, err := s.resets.Create(ctx, user.Email)
	if errors.Is(err, auth.ErrResetThrottled) {
		return "", errResetThrottled
	}
	if err != nil {
		return "", apperror.Internal("Failed to send password reset link. Please try again.", err)
	}

	link := fmt.Sprintf("%s/reset-password/%s?email=%s", s.config.App.BaseURL, token, url.QueryEscape(user.Email))
	if err := s.mailer.SendPasswordResetEmail(ctx, user.Email, user.GetDisplayName(), link); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Error("failed to send password reset email")
		return "", apperror.Internal("Failed to send password reset link. Please try again.", err)
	}

	s.log.WithField("user_id", user.ID).Info("📧 password reset link sent")
	return "We have emailed your password reset link!", nil
}

// ResetPassword sets a new password when the token matches the email's live token
func (s *Service) ResetPassword(ctx context.Context, req *ResetPasswordRequest) (string, error) {
	req.Email = NormalizeEmail(req.Email)
	fields := validation.Struct(req)
	fields = s.checkNewPassword(fields, req.Password, req.PasswordConfirmation)
	if err := validation.Error(fields); err != nil {
		return "", err
	}
	if s.resets == nil {
		return "", errBadResetToken
	}

	var user User
	if err := s.db.WithContext(ctx).Where("email = ? AND is_active = ?", req.Email, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", errUnknownEmail
		}
		return "", fmt.Errorf("failed to find user: %w", err)
	}

	ok, err := s.resets.Consume(ctx, user.Email, req.Token)
	if err != nil {
		return "", apperror.Internal("Failed to reset password. Please try again.", err)
	}
	if !ok {
		return "", errBadResetToken
	}

	hashedPassword, err := s.passwordManager.HashPassword(req.Password)
	if err != nil {
		return "", fmt.Errorf("failed to hash new password: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&user).Update("password", hashedPassword).Error; err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Error("failed to reset password")
		return "", apperror.Internal("Failed to reset password. Please try again.", err)
	}

	s.log.WithField("user_id", user.ID).Info("🔑 password reset")
	return "Your password has been reset!", nil
}

// EnsureAdmin creates an admin account or promotes an existing one. It
// reports whether a new account was created.
func (s *Service) EnsureAdmin(ctx context.Context, name, email, password string) (*User, bool, error) {
	email = NormalizeEmail(email)

	var user User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		if err := s.db.WithContext(ctx).Model(&user).Updates(map[string]interface{}{"is_admin": true, "is_active": true}).Error; err != nil {
			return nil, false, fmt.Errorf("failed to promote user: %w", err)
		}
		user.IsAdmin, user.IsActive = true, true
		return &user, false, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, fmt.Errorf("failed to find user: %w", err)
	}

	hashedPassword, err := s.passwordManager.HashPassword(password)
	if err != nil {
		return nil, false, err
	}
	user = User{Name: name, Email: email, Password: hashedPassword, IsAdmin: true, IsActive: true}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create admin: %w", err)
	}
	return &user, true, nil
}

func (s *Service) checkNewPassword(fields map[string][]string, password, confirmation string) map[string][]string {
	if password == "" {
		return fields
	}
	if err := s.passwordManager.ValidatePassword(password); err != nil {
		fields = validation.Add(fields, "password", err.Error())
	}
	if password != confirmation {
		fields = validation.Add(fields, "password", "The password field confirmation does not match.")
	}
	return fields
}

func (s *Service) emailTaken(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return count > 0, nil
}

func (s *Service) issue(user *User) (*AuthResponse, error) {
	tokens, err := s.jwtManager.GeneratePair(user.ID, user.Email, user.IsAdmin)
	if err != nil {
		return nil, apperror.Internal("Failed to issue tokens. Please try again.", err)
	}
	return &AuthResponse{User: user, Tokens: tokens}, nil
}
