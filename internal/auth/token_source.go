package auth

import (
	"context"
	"errors"
	"strings"
)

var ErrNoAccessToken = errors.New("no access token available")

// TokenSource supplies the bearer token sent to the authoring API.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

type tokenKey struct{}

// ContextWithToken stores the caller's token for HeaderTokenSource.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, strings.TrimSpace(token))
}

func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)
	return token, ok && token != ""
}

// HeaderTokenSource forwards the token the incoming request carried.
type HeaderTokenSource struct{}

func (HeaderTokenSource) AccessToken(ctx context.Context) (string, error) {
	if token, ok := TokenFromContext(ctx); ok {
		return token, nil
	}
	return "", ErrNoAccessToken
}

// StaticTokenSource always returns the configured service token.
type StaticTokenSource string

func (s StaticTokenSource) AccessToken(context.Context) (string, error) {
	token := strings.TrimSpace(string(s))
	if token == "" {
		return "", ErrNoAccessToken
	}
	return token, nil
}

// ChainTokenSource returns the first token any of its sources yields.
type ChainTokenSource []TokenSource

func (c ChainTokenSource) AccessToken(ctx context.Context) (string, error) {
	for _, src := range c {
		token, err := src.AccessToken(ctx)
		if err == nil && token != "" {
			return token, nil
		}
		if err != nil && !errors.Is(err, ErrNoAccessToken) {
			return "", err
		}
	}
	return "", ErrNoAccessToken
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
