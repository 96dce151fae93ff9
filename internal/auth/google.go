package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const userInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// IdentityProvider abstracts a federated identity provider. The rest of
// the system only ever consumes the verified email address.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	// ExchangeEmail redeems an authorization code and returns the email
	// asserted by the provider.
	ExchangeEmail(ctx context.Context, code string) (string, error)
}

// GoogleProvider implements IdentityProvider against Google's OAuth2
// endpoints.
type GoogleProvider struct {
	config *oauth2.Config
}

var _ IdentityProvider = (*GoogleProvider)(nil)

// NewGoogleProvider builds a provider from client credentials and the
// registered callback URL.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"profile", "email"},
			Endpoint:     google.Endpoint,
		},
	}
}

// AuthCodeURL returns the provider consent-screen URL for a login attempt.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// ExchangeEmail redeems the authorization code and fetches the profile,
// returning only the email address.
func (p *GoogleProvider) ExchangeEmail(ctx context.Context, code string) (string, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchange code: %w", err)
	}

	client := p.config.Client(ctx, token)
	resp, err := client.Get(userInfoURL)
	if err != nil {
		return "", fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	var profile struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return "", fmt.Errorf("decode userinfo: %w", err)
	}
	if profile.Email == "" {
		return "", errors.New("userinfo missing email")
	}
	return profile.Email, nil
}
