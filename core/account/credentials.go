package account

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/ecampus-dev/aula/core"
)

var (
	// errors
	ErrNoCredentials      = errors.New("no stored credentials for account")
	ErrCredentialsExpired = errors.New("stored credentials expired and could not be refreshed")
)

// CredentialStore hands out valid OAuth tokens for an Account, refreshing
// and persisting them on demand.
type CredentialStore struct {
	repo Repository
	conf *core.Config
}

func NewCredentialStore(repo Repository, conf *core.Config) *CredentialStore {
	return &CredentialStore{repo: repo, conf: conf}
}

// OAuthConfig builds the oauth2 client config for the authorization-code
// flow and for token refreshes. The endpoint follows the config override
// when one is set, Google's otherwise.
func (cs *CredentialStore) OAuthConfig() *oauth2.Config {
	endpoint := google.Endpoint
	if cs.conf.Google.AuthURL != "" || cs.conf.Google.TokenURL != "" {
		endpoint = oauth2.Endpoint{AuthURL: cs.conf.Google.AuthURL, TokenURL: cs.conf.Google.TokenURL}
	}
	return &oauth2.Config{
		ClientID:     cs.conf.Google.ClientID,
		ClientSecret: cs.conf.Google.ClientSecret,
		RedirectURL:  cs.conf.Google.RedirectURL,
		Scopes:       cs.conf.Google.Scopes,
		Endpoint:     endpoint,
	}
}

// Valid returns a usable token for the account. An expired bundle is
// refreshed against the token endpoint and the new access token + expiry
// are persisted on the account.
func (cs *CredentialStore) Valid(ctx context.Context, acct Account) (*oauth2.Token, error) {
	if !acct.HasCredentials() {
		return nil, ErrNoCredentials
	}

	tok := &oauth2.Token{
		AccessToken:  acct.AccessToken,
		RefreshToken: acct.RefreshToken,
		Expiry:       acct.TokenExpiry,
	}
	if tok.Valid() {
		return tok, nil
	}

	newTok, err := cs.OAuthConfig().TokenSource(ctx, tok).Token()
	if err != nil {
		return nil, errors.Wrap(ErrCredentialsExpired, err.Error())
	}

	acct.AccessToken = newTok.AccessToken
	if newTok.RefreshToken != "" {
		acct.RefreshToken = newTok.RefreshToken
	}
	acct.TokenExpiry = newTok.Expiry.UTC()
	acct.UpdatedAt = time.Now().UTC()
	if _, err = cs.repo.UpdateAccount(ctx, acct); err != nil {
		return nil, errors.Wrap(err, "persisting refreshed credentials")
	}
	return newTok, nil
}
