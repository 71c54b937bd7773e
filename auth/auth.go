// Package auth provides bearer credentials for the relay broker. Small
// deployments use a pre-shared token; hosted brokers issue short-lived
// tokens through the OAuth2 client-credentials flow.
package auth

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TokenSource yields a bearer token and attaches it to outgoing requests.
type TokenSource interface {
	GetToken() (string, error)
	SetAuthHeader(r *http.Request) error
}

// Static is a fixed pre-shared token.
type Static string

func (s Static) GetToken() (string, error) { return string(s), nil }

func (s Static) SetAuthHeader(r *http.Request) error {
	if s != "" {
		r.Header.Set("Authorization", "Bearer "+string(s))
	}
	return nil
}

// ClientCred obtains tokens via the OAuth2 client-credentials flow and
// caches them until expiry.
type ClientCred struct {
	conf  clientcredentials.Config
	token *oauth2.Token
}

func NewClientCred(conf Conf) *ClientCred {
	return &ClientCred{
		conf: conf.toOauth2Config(),
	}
}

// GetToken retrieves a valid access token. If the current token is valid, it
// returns the existing token. Otherwise it requests a new one using the
// client credentials configuration.
func (c *ClientCred) GetToken() (string, error) {
	if c.token != nil && c.token.Valid() {
		return c.token.AccessToken, nil
	}
	if err := c.getToken(); err != nil {
		return "", err
	}
	return c.token.AccessToken, nil
}

func (c *ClientCred) getToken() error {
	var err error
	c.token, err = c.conf.Token(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get token: %w", err)
	}
	return nil
}

// ForceRefresh discards the cached token and requests a new one.
func (c *ClientCred) ForceRefresh() (string, error) {
	var err error
	c.token, err = c.conf.Token(context.Background())
	if err != nil {
		return "", fmt.Errorf("failed to get token: %w", err)
	}
	return c.token.AccessToken, nil
}

// SetAuthHeader attaches a valid bearer token to the request, fetching one
// first if needed.
func (c *ClientCred) SetAuthHeader(r *http.Request) error {
	if c.token != nil && c.token.Valid() {
		c.token.SetAuthHeader(r)
		return nil
	}
	if err := c.getToken(); err != nil {
		return err
	}
	c.token.SetAuthHeader(r)
	return nil
}
