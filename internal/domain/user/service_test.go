package user_test

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/your-org/catalog-backend/internal/config"
	"github.com/your-org/catalog-backend/internal/domain/user"
	"github.com/your-org/catalog-backend/internal/pkg/apperror"
	"github.com/your-org/catalog-backend/internal/pkg/auth"
	"github.com/your-org/catalog-backend/internal/pkg/logger"
	"github.com/your-org/catalog-backend/internal/testutil"
	"gorm.io/gorm"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	db, teardown, err := testutil.StartPostgres(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "postgres tests skipped: %v\n", err)
	} else {
		testDB = db
	}

	code := m.Run()
	if teardown != nil {
		teardown()
	}
	os.Exit(code)
}

type recordingMailer struct {
	sent       []string
	resetLinks []string
	err        error
}

func (m *recordingMailer) SendWelcomeEmail(_ context.Context, email, _ string) error {
	m.sent = append(m.sent, email)
	return m.err
}

func (m *recordingMailer) SendPasswordResetEmail(_ context.Context, _, _, resetURL string) error {
	m.resetLinks = append(m.resetLinks, resetURL)
	return m.err
}

func testConfig(rotate bool) *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "catalog-test", BaseURL: "https://shop.example"},
		JWT: config.JWTConfig{
			Secret:               "test-secret-that-is-long-enough-for-hs256",
			AccessTokenExpiry:    15 * time.Minute,
			RefreshTokenExpiry:   24 * time.Hour,
			RefreshTokenRotation: rotate,
		},
		Security: config.SecurityConfig{
			BcryptCost:            4,
			MinPasswordLength:     8,
			PasswordResetExpiry:   time.Hour,
			PasswordResetThrottle: time.Minute,
		},
	}
}

func newService(t *testing.T, rotate bool, mailer user.Mailer) (*user.Service, *auth.Blacklist) {
	t.Helper()
	db := testutil.RequireDB(t, testDB)
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	cfg := testConfig(rotate)
	blacklist := auth.NewBlacklist(client)
	return user.NewService(db, cfg, blacklist, auth.NewPasswordResets(client, cfg), mailer, logger.Discard()), blacklist
}

func register(t *testing.T, svc *user.Service, email string) *user.AuthResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), &user.RegisterRequest{
		Name:                 "Ann Example",
		Email:                email,
		Password:             "secret123",
		PasswordConfirmation: "secret123",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return resp
}

func fieldErrors(t *testing.T, err error) map[string][]string {
	t.Helper()
	var appErr *apperror.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperror.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	return appErr.Fields
}

func TestRegisterIssuesTokensAndSendsWelcome(t *testing.T) {
	mailer := &recordingMailer{}
	svc, _ := newService(t, false, mailer)

	resp := register(t, svc, "  Ann@Example.com ")
	if resp.User.Email != "ann@example.com" || resp.User.IsAdmin {
		t.Errorf("user = %+v", resp.User)
	}
	if resp.Tokens.AccessToken == "" || resp.Tokens.RefreshToken == "" || resp.Tokens.TokenType != "Bearer" {
		t.Errorf("tokens = %+v", resp.Tokens)
	}
	if len(mailer.sent) != 1 || mailer.sent[0] != "ann@example.com" {
		t.Errorf("sent = %v", mailer.sent)
	}
}

func TestRegisterSurvivesMailFailure(t *testing.T) {
	svc, _ := newService(t, false, &recordingMailer{err: errors.New("smtp down")})
	register(t, svc, "ann@example.com")
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newService(t, false, nil)
	register(t, svc, "ann@example.com")

	_, err := svc.Register(context.Background(), &user.RegisterRequest{
		Name:                 "Ann Again",
		Email:                "ANN@example.com",
		Password:             "secret123",
		PasswordConfirmation: "secret124",
	})
	fields := fieldErrors(t, err)
	if got := fields["email"]; len(got) != 1 || got[0] != "The email has already been taken." {
		t.Errorf("email = %v", got)
	}
	if got := fields["password"]; len(got) != 1 || got[0] != "The password field confirmation does not match." {
		t.Errorf("password = %v", got)
	}

	_, err = svc.Register(context.Background(), &user.RegisterRequest{Name: "Bob", Email: "bob@example.com", Password: "short", PasswordConfirmation: "short"})
	if fields := fieldErrors(t, err); len(fields["password"]) == 0 {
		t.Errorf("short password accepted: %v", fields)
	}
}

func TestLogin(t *testing.T) {
	svc, _ := newService(t, false, nil)
	register(t, svc, "ann@example.com")
	ctx := context.Background()

	resp, err := svc.Login(ctx, &user.LoginRequest{Email: "Ann@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.User.LastLoginAt == nil {
		t.Error("last_login_at not set")
	}

	for name, req := range map[string]*user.LoginRequest{
		"wrong password": {Email: "ann@example.com", Password: "secret999"},
		"unknown email":  {Email: "nobody@example.com", Password: "secret123"},
	} {
		_, err := svc.Login(ctx, req)
		if !apperror.Is(err, apperror.KindUnauthorized) || err.Error() != "These credentials do not match our records." {
			t.Errorf("%s: %v", name, err)
		}
	}
}

func TestRefreshWithRotationRevokesOldToken(t *testing.T) {
	svc, _ := newService(t, true, nil)
	ctx := context.Background()
	first := register(t, svc, "ann@example.com")

	second, err := svc.Refresh(ctx, first.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if second.Tokens.RefreshToken == first.Tokens.RefreshToken {
		t.Error("refresh token was not rotated")
	}
	if _, err := svc.Refresh(ctx, first.Tokens.RefreshToken); !apperror.Is(err, apperror.KindUnauthorized) {
		t.Errorf("reused refresh token: %v", err)
	}
	if _, err := svc.Refresh(ctx, first.Tokens.AccessToken); !apperror.Is(err, apperror.KindUnauthorized) {
		t.Errorf("access token accepted as refresh token: %v", err)
	}
}

func TestRefreshWithoutRotationKeepsToken(t *testing.T) {
	svc, _ := newService(t, false, nil)
	first := register(t, svc, "ann@example.com")

	second, err := svc.Refresh(context.Background(), first.Tokens.RefreshToken)
	if err != nil {
		t.Fatal(err)
	}
	if second.Tokens.RefreshToken != first.Tokens.RefreshToken {
		t.Error("refresh token changed without rotation")
	}
}

func TestLogoutRevokesTokens(t *testing.T) {
	svc, blacklist := newService(t, false, nil)
	ctx := context.Background()
	resp := register(t, svc, "ann@example.com")

	claims, err := auth.NewJWTManager(testConfig(false)).ValidateAccessToken(resp.Tokens.AccessToken)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Logout(ctx, claims, resp.Tokens.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	if revoked, _ := blacklist.IsRevoked(ctx, claims.ID); !revoked {
		t.Error("access token still valid")
	}
	if _, err := svc.Refresh(ctx, resp.Tokens.RefreshToken); !apperror.Is(err, apperror.KindUnauthorized) {
		t.Errorf("refresh after logout: %v", err)
	}
}

func TestUpdateProfileKeepsOmittedValues(t *testing.T) {
	svc, _ := newService(t, false, nil)
	ctx := context.Background()
	resp := register(t, svc, "ann@example.com")

	city := "Lisbon"
	phone := "+351 555 0100"
	if _, err := svc.UpdateProfile(ctx, resp.User.ID, &user.ProfileRequest{City: &city, Phone: &phone}); err != nil {
		t.Fatal(err)
	}
	updated, err := svc.UpdateProfile(ctx, resp.User.ID, &user.ProfileRequest{
		Preferences: map[string]interface{}{"newsletter": true},
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.Name != "Ann Example" || updated.City != "Lisbon" || updated.Phone != phone || updated.Preferences["newsletter"] != true {
		t.Errorf("user = %+v", updated)
	}
}

func TestUpdatePassword(t *testing.T) {
	svc, _ := newService(t, false, nil)
	ctx := context.Background()
	resp := register(t, svc, "ann@example.com")

	err := svc.UpdatePassword(ctx, resp.User.ID, &user.PasswordRequest{CurrentPassword: "wrong1234", Password: "newpass123", PasswordConfirmation: "newpass123"})
	fields := fieldErrors(t, err)
	if got := fields["current_password"]; len(got) != 1 || got[0] != "The provided password does not match your current password." {
		t.Errorf("current_password = %v", got)
	}

	if err := svc.UpdatePassword(ctx, resp.User.ID, &user.PasswordRequest{CurrentPassword: "secret123", Password: "newpass123", PasswordConfirmation: "newpass123"}); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}
	if _, err := svc.Login(ctx, &user.LoginRequest{Email: "ann@example.com", Password: "newpass123"}); err != nil {
		t.Errorf("login with new password: %v", err)
	}
}

func TestEnsureAdminCreatesThenPromotes(t *testing.T) {
	svc, _ := newService(t, false, nil)
	ctx := context.Background()

	admin, created, err := svc.EnsureAdmin(ctx, "Root", "root@example.com", "rootpass123")
	if err != nil || !created || !admin.IsAdmin {
		t.Fatalf("EnsureAdmin = %+v, %v, %v", admin, created, err)
	}

	resp := register(t, svc, "ann@example.com")
	promoted, created, err := svc.EnsureAdmin(ctx, "", "ann@example.com", "")
	if err != nil || created || !promoted.IsAdmin || promoted.ID != resp.User.ID {
		t.Errorf("promote = %+v, %v, %v", promoted, created, err)
	}
}

func resetToken(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	if err != nil {
		t.Fatal(err)
	}
	if u.Query().Get("email") != "ann@example.com" || !strings.HasPrefix(u.Path, "/reset-password/") {
		t.Fatalf("reset link = %s", link)
	}
	return strings.TrimPrefix(u.Path, "/reset-password/")
}

func TestPasswordResetFlow(t *testing.T) {
	mailer := &recordingMailer{}
	svc, _ := newService(t, false, mailer)
	ctx := context.Background()
	register(t, svc, "ann@example.com")

	msg, err := svc.SendPasswordResetLink(ctx, &user.ForgotPasswordRequest{Email: "Ann@Example.com"})
	if err != nil || msg != "We have emailed your password reset link!" {
		t.Fatalf("SendPasswordResetLink = %q, %v", msg, err)
	}
	if len(mailer.resetLinks) != 1 {
		t.Fatalf("reset mails = %d", len(mailer.resetLinks))
	}
	token := resetToken(t, mailer.resetLinks[0])

	_, err = svc.SendPasswordResetLink(ctx, &user.ForgotPasswordRequest{Email: "ann@example.com"})
	if fields := fieldErrors(t, err); fields["email"][0] != "Please wait before retrying." {
		t.Errorf("second request: %v", fields)
	}

	bad := &user.ResetPasswordRequest{Token: "nope", Email: "ann@example.com", Password: "newpass123", PasswordConfirmation: "newpass123"}
	if _, err := svc.ResetPassword(ctx, bad); fieldErrors(t, err)["email"][0] != "This password reset token is invalid." {
		t.Errorf("bad token: %v", err)
	}

	req := &user.ResetPasswordRequest{Token: token, Email: "ann@example.com", Password: "newpass123", PasswordConfirmation: "newpass123"}
	msg, err = svc.ResetPassword(ctx, req)
	if err != nil || msg != "Your password has been reset!" {
		t.Fatalf("ResetPassword = %q, %v", msg, err)
	}
	if _, err := svc.Login(ctx, &user.LoginRequest{Email: "ann@example.com", Password: "newpass123"}); err != nil {
		t.Errorf("login with new password: %v", err)
	}
	if _, err := svc.ResetPassword(ctx, req); !apperror.Is(err, apperror.KindValidation) {
		t.Errorf("token reused: %v", err)
	}
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	mailer := &recordingMailer{}
	svc, _ := newService(t, false, mailer)

	_, err := svc.SendPasswordResetLink(context.Background(), &user.ForgotPasswordRequest{Email: "ghost@example.com"})
	if fields := fieldErrors(t, err); fields["email"][0] != "We can't find a user with that email address." {
		t.Errorf("email = %v", fields["email"])
	}
	if len(mailer.resetLinks) != 0 {
		t.Error("mail sent for unknown email")
	}
}
