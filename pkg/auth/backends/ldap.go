package backends

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"

	"github.com/dukex/pvm/pkg/auth"
	"github.com/dukex/pvm/pkg/models"
)

type LDAPConfig struct {
	URL    string
	Base   string
	Domain string
	// InsecureSkipVerify disables certificate checks on ldaps:// URLs.
	InsecureSkipVerify bool
}

// LDAPIdentity binds as DOMAIN\username and reads the user's mail and name
// from the directory.
type LDAPIdentity struct {
	config LDAPConfig
}

func NewLDAPIdentity(config LDAPConfig) *LDAPIdentity {
	return &LDAPIdentity{config: config}
}

func (l *LDAPIdentity) ID() string {
	return "ldap"
}

func (l *LDAPIdentity) Authenticate(_ context.Context, credentials map[string]string) (*models.User, error) {
	username := credentials["username"]
	if username == "" {
		return nil, auth.NewMissingCredentialError("username")
	}

	password, ok := credentials["password"]
	if !ok || password == "" {
		return nil, auth.NewMissingCredentialError("password")
	}

	if l.config.URL == "" {
		return nil, &auth.MisconfiguredProviderError{Provider: l.ID(), Reason: "no server URL configured"}
	}

	domain := l.config.Domain
	if override := credentials["domain"]; override != "" {
		domain = override
	}

	conn, err := ldap.DialURL(l.config.URL, ldap.DialWithTLSConfig(&tls.Config{
		InsecureSkipVerify: l.config.InsecureSkipVerify, //nolint:gosec
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ldap server: %w", err)
	}
	defer conn.Close()

	identifier := domain + `\` + username

	if err := conn.Bind(identifier, password); err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
			return nil, &auth.AuthenticationError{
				Description: "invalid username or password",
				Code:        "auth.invalid_credentials",
				Where:       "request.body.password",
			}
		}

		return nil, fmt.Errorf("failed to bind as %s: %w", identifier, err)
	}

	result, err := conn.Search(ldap.NewSearchRequest(
		l.config.Base,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 1, 0, false,
		fmt.Sprintf("(CN=%s)", ldap.EscapeFilter(username)),
		[]string{"mail", "givenName", "sn"},
		nil,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", username, err)
	}

	if len(result.Entries) == 0 {
		return nil, &auth.AuthenticationError{
			Description: fmt.Sprintf("user %s is not in the directory", username),
			Code:        "auth.user_not_found",
			Where:       "request.body.username",
		}
	}

	entry := result.Entries[0]
	fullname := strings.TrimSpace(entry.GetAttributeValue("givenName") + " " + entry.GetAttributeValue("sn"))

	return &models.User{
		Identifier: identifier,
		Email:      entry.GetAttributeValue("mail"),
		Fullname:   fullname,
	}, nil
}
