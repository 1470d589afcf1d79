// Package auth is the identity boundary. Orchestration never gates on
// identity; the surrounding surface only requires that some user is
// signed in.
package auth

import (
	"github.com/pkg/errors"

	"github.com/apexhq/apex/internal/configuration"
)

// User is a signed-in identity.
type User struct {
	ID          string
	DisplayName string
	PhotoURL    string
	Provider    string
}

// Provider supplies the current signed-in user, if any.
type Provider interface {
	CurrentUser() (*User, error)
}

// StaticProvider serves the identity configured in the config file.
type StaticProvider struct {
	user *User
}

// NewStaticProvider instantiates a provider from configuration. A nil user
// config means nobody is signed in.
func NewStaticProvider(config *configuration.UserConfig) *StaticProvider {
	if config == nil {
		return &StaticProvider{}
	}
	return &StaticProvider{user: &User{
		ID:          config.ID,
		DisplayName: config.DisplayName,
		PhotoURL:    config.PhotoURL,
		Provider:    config.Provider,
	}}
}

// CurrentUser returns the configured user or an error when none is set.
func (p *StaticProvider) CurrentUser() (*User, error) {
	if p.user == nil {
		return nil, errors.New("no user configured: set the \"user\" section of the config file")
	}
	return p.user, nil
}
