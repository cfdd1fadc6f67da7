package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"prism-dashboard/api"
	"prism-dashboard/domain"
)

func TestGeneratedTokensAreAccepted(t *testing.T) {
	opts := tokenOptions{secret: []byte("s3cret"), role: "admin", claim: "roles", audience: "api://prism", ttl: time.Hour}
	tokens, err := generateTokens(3, "perf-user", 5, nil, opts)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	auth := api.NewAuth(nil, api.AuthConfig{Audience: "api://prism", RoleClaim: "roles", TestSecret: opts.secret})
	for i, tok := range tokens {
		p, err := auth.PrincipalFromBearer([]byte(tok))
		if err != nil {
			t.Fatalf("token %d rejected: %v", i, err)
		}
		want := []string{"perf-user-5", "perf-user-6", "perf-user-7"}[i]
		if p.UserID != want || p.Role != domain.RoleAdmin {
			t.Fatalf("unexpected principal %+v", p)
		}
	}
}

func TestExplicitUserID(t *testing.T) {
	tokens, err := generateTokens(1, "ignored", 1, []string{"alice"}, tokenOptions{secret: []byte("x"), ttl: time.Minute})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	auth := api.NewAuth(nil, api.AuthConfig{TestSecret: []byte("x")})
	p, err := auth.PrincipalFromBearer([]byte(tokens[0]))
	if err != nil || p.UserID != "alice" || p.Role != domain.RoleUser {
		t.Fatalf("unexpected principal %+v, %v", p, err)
	}
}

func TestWriteTokens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tokens.json")
	if err := writeTokens(path, []string{"a.b.c", "d.e.f"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got []string
	if err := sonic.Unmarshal(data, &got); err != nil || len(got) != 2 {
		t.Fatalf("unexpected file contents %q (%v)", data, err)
	}
}

func TestEmptySecretRejected(t *testing.T) {
	if _, err := signToken("u", tokenOptions{}); err == nil {
		t.Fatalf("expected error")
	}
}
