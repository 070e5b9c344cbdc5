// Package auth obtains an authorized Gmail service from an OAuth client
// secret file, caching the granted token on disk so subsequent runs skip the
// browser round trip.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// NewService authenticates against the Gmail API. credentialsPath is the
// OAuth client secret JSON from the Google Cloud console; tokenPath is where
// the granted token is cached. When no usable token exists the user is sent
// through the authorization-code flow on the terminal.
func NewService(ctx context.Context, credentialsPath, tokenPath string) (*gmailapi.Service, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials file %s: %w", credentialsPath, err)
	}

	cfg, err := google.ConfigFromJSON(data, gmailapi.GmailModifyScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials file: %w", err)
	}

	token, err := tokenFromFile(tokenPath)
	if err != nil {
		token, err = tokenFromWeb(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := saveToken(tokenPath, token); err != nil {
			return nil, err
		}
	}

	source := &persistingTokenSource{
		path: tokenPath,
		src:  cfg.TokenSource(ctx, token),
		last: token,
	}

	svc, err := gmailapi.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return svc, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	token := &oauth2.Token{}
	if err := json.Unmarshal(data, token); err != nil {
		return nil, fmt.Errorf("parse token file %s: %w", path, err)
	}
	return token, nil
}

func tokenFromWeb(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	url := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Open the following link in your browser, then paste the authorization code:\n%s\n\nCode: ", url)

	var code string
	if _, err := fmt.Scan(&code); err != nil {
		return nil, fmt.Errorf("read authorization code: %w", err)
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write token file %s: %w", path, err)
	}
	return nil
}

// persistingTokenSource saves the token back to disk whenever the underlying
// source refreshes it, so a long batch does not force re-authorization on
// the next run.
type persistingTokenSource struct {
	path string
	src  oauth2.TokenSource

	mu   sync.Mutex
	last *oauth2.Token
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.src.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last == nil || token.AccessToken != s.last.AccessToken {
		if err := saveToken(s.path, token); err != nil {
			// Refresh succeeded; a failed cache write should not fail the call.
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
		s.last = token
	}
	return token, nil
}
