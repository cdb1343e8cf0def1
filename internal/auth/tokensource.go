package auth

import (
	"context"

	"golang.org/x/oauth2"
)

// TokenSource exposes the manager's API key as an oauth2.TokenSource so
// embedding tools can hand it straight to an HTTP client:
//
//	client := oauth2.NewClient(ctx, mgr.TokenSource(ctx))
//
// The source is wrapped in oauth2.ReuseTokenSource, so the manager is
// only consulted when the previously issued token expires.
func (m *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &managerTokenSource{ctx: ctx, m: m})
}

type managerTokenSource struct {
	ctx context.Context
	m   *Manager
}

// Token implements oauth2.TokenSource. Expired cached keys are refreshed
// through the manager, so the returned token is always live.
func (s *managerTokenSource) Token() (*oauth2.Token, error) {
	key, err := s.m.APIKey(s.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: key.Value,
		TokenType:   "Bearer",
		Expiry:      key.Expiry(),
	}, nil
}
