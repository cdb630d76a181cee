package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"roulette-server/common/logger"
	"roulette-server/internal/config"

	beegocontext "github.com/beego/beego/v2/server/web/context"
)

func TestMain(m *testing.M) {
	logger.InitLogger()
	cfg := &config.Config{}
	cfg.Auth.JWT.Secret = "test-secret"
	cfg.Auth.JWT.AccessTokenTTL = 3600
	cfg.Auth.JWT.Issuer = "roulette-server-test"
	config.Set(cfg)
	config.SetCurrent(cfg)
	os.Exit(m.Run())
}

func requestContext(authHeader string) *beegocontext.Context {
	req := httptest.NewRequest(http.MethodGet, "/api/treasury/balance", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	ctx := beegocontext.NewContext()
	ctx.Reset(httptest.NewRecorder(), req)
	return ctx
}

func TestGenerateAndVerifyAdminToken(t *testing.T) {
	token, err := GenerateAdminToken("ops")
	if err != nil {
		t.Fatalf("GenerateAdminToken: %v", err)
	}

	claims, err := VerifyAdminToken(requestContext("Bearer " + token))
	if err != nil {
		t.Fatalf("VerifyAdminToken: %v", err)
	}
	if claims.Subject != "ops" || claims.Role != "admin" {
		t.Fatalf("claims wrong: %+v", claims)
	}
}

func TestVerifyAdminTokenMissing(t *testing.T) {
	_, err := VerifyAdminToken(requestContext(""))
	if !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestVerifyAdminTokenBadFormat(t *testing.T) {
	for _, h := range []string{"token-only", "Basic abc", "Bearer a b"} {
		_, err := VerifyAdminToken(requestContext(h))
		if !errors.Is(err, ErrInvalidTokenFormat) {
			t.Fatalf("header %q expected ErrInvalidTokenFormat, got %v", h, err)
		}
	}
}

func TestVerifyAdminTokenTampered(t *testing.T) {
	token, err := GenerateAdminToken("ops")
	if err != nil {
		t.Fatalf("GenerateAdminToken: %v", err)
	}
	tampered := token[:len(token)-2] + "xx"
	_, err = VerifyAdminToken(requestContext("Bearer " + tampered))
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	_, err = VerifyAdminToken(requestContext("Bearer not.a.jwt"))
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
}
