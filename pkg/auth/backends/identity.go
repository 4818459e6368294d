// Package backends holds the built-in identity and hierarchy providers.
package backends

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/dukex/pvm/pkg/auth"
	"github.com/dukex/pvm/pkg/models"
)

// AnyoneIdentity lets in whoever says their username.
type AnyoneIdentity struct{}

func NewAnyoneIdentity() *AnyoneIdentity {
	return &AnyoneIdentity{}
}

func (a *AnyoneIdentity) ID() string {
	return "anyone"
}

func (a *AnyoneIdentity) Authenticate(_ context.Context, credentials map[string]string) (*models.User, error) {
	username := credentials["username"]
	if username == "" {
		return nil, auth.NewMissingCredentialError("username")
	}

	fullname := credentials["fullname"]
	if fullname == "" {
		fullname = username
	}

	return &models.User{Identifier: username, Email: credentials["email"], Fullname: fullname}, nil
}

// ImpersonateIdentity lets an operator log in as any user with a shared
// password.
type ImpersonateIdentity struct {
	password string
}

func NewImpersonateIdentity(password string) *ImpersonateIdentity {
	return &ImpersonateIdentity{password: password}
}

func (i *ImpersonateIdentity) ID() string {
	return "impersonate"
}

func (i *ImpersonateIdentity) Authenticate(_ context.Context, credentials map[string]string) (*models.User, error) {
	username := credentials["username"]
	if username == "" {
		return nil, auth.NewMissingCredentialError("username")
	}

	password, ok := credentials["password"]
	if !ok {
		return nil, auth.NewMissingCredentialError("password")
	}

	if i.password == "" {
		return nil, &auth.MisconfiguredProviderError{Provider: i.ID(), Reason: "no impersonation password configured"}
	}

	if subtle.ConstantTimeCompare([]byte(password), []byte(i.password)) != 1 {
		return nil, &auth.AuthenticationError{
			Description: fmt.Sprintf("cannot impersonate %s", username),
			Code:        "auth.invalid_credentials",
			Where:       "request.body.password",
		}
	}

	return &models.User{Identifier: username, Fullname: username}, nil
}
