package identity

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// FederatedUser is the identity returned by a federated provider.
type FederatedUser struct {
	Subject       string
	Email         string
	EmailVerified bool
}

// Federation is a redirect-based sign-in provider.
type Federation interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (FederatedUser, error)
}

// GoogleFederation signs users in with their Google account.
type GoogleFederation struct {
	config *oauth2.Config
}

func NewGoogleFederation(clientID, clientSecret, redirectURL string) *GoogleFederation {
	return &GoogleFederation{config: &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       []string{oauth2api.OpenIDScope, oauth2api.UserinfoEmailScope},
	}}
}

func (g *GoogleFederation) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange trades the authorization code for a token and reads the account's
// userinfo.
func (g *GoogleFederation) Exchange(ctx context.Context, code string) (FederatedUser, error) {
	tok, err := g.config.Exchange(ctx, code)
	if err != nil {
		return FederatedUser{}, fmt.Errorf("exchange google code: %w", err)
	}
	svc, err := oauth2api.NewService(ctx, option.WithTokenSource(g.config.TokenSource(ctx, tok)))
	if err != nil {
		return FederatedUser{}, fmt.Errorf("create userinfo service: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return FederatedUser{}, fmt.Errorf("fetch google userinfo: %w", err)
	}
	if info.Id == "" || info.Email == "" {
		return FederatedUser{}, errors.New("google userinfo missing id or email")
	}
	return FederatedUser{
		Subject:       info.Id,
		Email:         info.Email,
		EmailVerified: info.VerifiedEmail != nil && *info.VerifiedEmail,
	}, nil
}
