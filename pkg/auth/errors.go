package auth

import (
	"errors"
	"fmt"
)

// AuthenticationError is reported back to the person that failed to log in
// or act on a node.
type AuthenticationError struct {
	Description string `json:"description"`
	Code        string `json:"code"`
	Where       string `json:"where"`
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Description)
}

// NewMissingCredentialError reports a credential that was not sent.
func NewMissingCredentialError(name string) *AuthenticationError {
	return &AuthenticationError{
		Description: name + " not sent",
		Code:        "validation.required",
		Where:       "request.body." + name + ".required",
	}
}

// NewForbiddenError reports a user that may not act on a node.
func NewForbiddenError(identifier string) *AuthenticationError {
	return &AuthenticationError{
		Description: fmt.Sprintf("user %s is not allowed to act on this node", identifier),
		Code:        "auth.forbidden",
		Where:       "request.body.user_identifier",
	}
}

// MisconfiguredProviderError reports a provider missing or receiving params
// it cannot work with.
type MisconfiguredProviderError struct {
	Provider string
	Reason   string
}

func (e *MisconfiguredProviderError) Error() string {
	return fmt.Sprintf("provider %s is misconfigured: %s", e.Provider, e.Reason)
}

func IsAuthenticationError(err error) bool {
	var target *AuthenticationError

	return errors.As(err, &target)
}

func IsMisconfiguredProvider(err error) bool {
	var target *MisconfiguredProviderError

	return errors.As(err, &target)
}
