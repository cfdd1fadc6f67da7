// Command gen-token issues HS256 tokens accepted by the dashboard API when it
// runs with AUTH0_TEST_MODE=1.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/golang-jwt/jwt/v4"
	log "github.com/sirupsen/logrus"

	"prism-dashboard/api"
)

type tokenOptions struct {
	secret   []byte
	role     string
	claim    string
	audience string
	ttl      time.Duration
}

func main() {
	var (
		count    = flag.Int("count", 1, "number of tokens to generate")
		prefix   = flag.String("prefix", "perf-user", "prefix for generated user IDs when count > 1")
		start    = flag.Int("start", 1, "starting index for generated user IDs when count > 1")
		role     = flag.String("role", "user", "role claim value (user or admin)")
		claim    = flag.String("claim", envOr("ROLE_CLAIM", api.DefaultRoleClaim), "name of the role claim")
		audience = flag.String("audience", os.Getenv("AUTH0_AUDIENCE"), "aud claim")
		ttl      = flag.Duration("ttl", time.Hour, "token lifetime")
		output   = flag.String("output", "", "file to write generated tokens as a JSON array")
	)
	flag.Parse()

	if *count < 1 {
		log.Fatal("count must be at least 1")
	}
	if *start < 1 {
		log.Fatal("start index must be at least 1")
	}
	args := flag.Args()
	if len(args) > 0 && *count > 1 {
		log.Fatal("explicit user ID cannot be provided when generating multiple tokens")
	}

	secret := os.Getenv("TEST_JWT_SECRET")
	if secret == "" {
		log.Fatal("TEST_JWT_SECRET must be set")
	}
	opts := tokenOptions{secret: []byte(secret), role: *role, claim: *claim, audience: *audience, ttl: *ttl}

	tokens, err := generateTokens(*count, *prefix, *start, args, opts)
	if err != nil {
		log.Fatalf("generate token: %v", err)
	}
	if *output != "" {
		if err := writeTokens(*output, tokens); err != nil {
			log.Fatalf("write tokens: %v", err)
		}
	}
	fmt.Print(tokens[0])
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func signToken(userID string, opts tokenOptions) (string, error) {
	if len(opts.secret) == 0 {
		return "", errors.New("empty signing secret")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(opts.ttl).Unix(),
	}
	if opts.audience != "" {
		claims["aud"] = opts.audience
	}
	if opts.role != "" && opts.claim != "" {
		claims[opts.claim] = opts.role
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(opts.secret)
}

func generateTokens(count int, prefix string, start int, args []string, opts tokenOptions) ([]string, error) {
	tokens := make([]string, count)
	for i := range tokens {
		var userID string
		switch {
		case len(args) > 0:
			userID = args[0]
		case count == 1:
			userID = prefix
		default:
			userID = fmt.Sprintf("%s-%d", prefix, start+i)
		}
		tok, err := signToken(userID, opts)
		if err != nil {
			return nil, err
		}
		tokens[i] = tok
	}
	return tokens, nil
}

func writeTokens(path string, tokens []string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := sonic.Marshal(tokens)
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}
