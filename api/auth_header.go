package api

import (
	"errors"
	"unsafe"
)

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("bad auth header")
)

const bearerScheme = "bearer"

// bearerTokenFromString returns the JWT from "Bearer <token>". The scheme is
// matched case-insensitively and the token must have three segments. The
// returned slice aliases raw and must not be modified.
func bearerTokenFromString(raw string) ([]byte, error) {
	start, end := 0, len(raw)
	for start < end && raw[start] == ' ' {
		start++
	}
	for end > start && raw[end-1] == ' ' {
		end--
	}
	if start >= end {
		return nil, errMissingAuthorization
	}
	trimmed := raw[start:end]
	if len(trimmed) <= len(bearerScheme)+1 || trimmed[len(bearerScheme)] != ' ' || !asciiEqualFold(trimmed[:len(bearerScheme)], bearerScheme) {
		return nil, errBadAuthorization
	}
	token := readOnlyBytes(trimmed[len(bearerScheme)+1:])
	dots := 0
	for _, b := range token {
		switch b {
		case '.':
			dots++
		case ' ':
			return nil, errBadAuthorization
		}
	}
	if dots != 2 {
		return nil, errBadAuthorization
	}
	return token, nil
}

func asciiEqualFold(s, lower string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != lower[i] {
			return false
		}
	}
	return true
}

func readOnlyBytes(s string) []byte {
	if s == "" {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

func readOnlyString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}
