package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/lifeline-health/platform/pkg/common/models"
	"golang.org/x/oauth2"
)

// OIDCAuthenticator validates tokens issued by a responder organization's
// identity provider, for deployments where emergency services bring their own
// SSO instead of platform accounts.
type OIDCAuthenticator struct {
	config *oauth2.Config
	issuer string
}

func NewOIDCAuthenticator(issuer, clientID, clientSecret string) (*OIDCAuthenticator, error) {
	if issuer == "" || clientID == "" {
		return nil, fmt.Errorf("OIDC configuration incomplete")
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  fmt.Sprintf("%s/authorize", issuer),
			TokenURL: fmt.Sprintf("%s/token", issuer),
		},
		Scopes: []string{"openid", "profile", "email"},
	}

	return &OIDCAuthenticator{
		config: config,
		issuer: issuer,
	}, nil
}

// ValidateToken resolves the bearer token against the issuer's userinfo
// endpoint. Identities arriving this way are always treated as responders;
// patient accounts only exist on the platform itself.
func (a *OIDCAuthenticator) ValidateToken(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("token is empty")
	}

	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	resp, err := client.Get(fmt.Sprintf("%s/userinfo", a.issuer))
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token rejected by issuer: %s", resp.Status)
	}

	var userinfo struct {
		Subject string `json:"sub"`
		Email   string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&userinfo); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo: %w", err)
	}
	if userinfo.Subject == "" {
		return nil, fmt.Errorf("userinfo missing subject")
	}

	return &Claims{
		Subject:  userinfo.Subject,
		Email:    userinfo.Email,
		UserType: models.UserTypeResponder,
	}, nil
}
