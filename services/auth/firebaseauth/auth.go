// Package firebaseauth authenticates with Firebase Authentication.
//
// Accounts are managed through the Admin SDK; password sign-in goes through the
// Identity Toolkit REST API with the project's web API key.
package firebaseauth

import (
	"context"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/session"
	"github.com/trezcool/alama/core/user"
	"github.com/trezcool/alama/services/auth"
)

// sign-in error codes meaning a wrong email/password pair
var invalidCredentialCodes = []string{"EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "INVALID_EMAIL"}

type Auth struct {
	authsvc.Notifier

	client  *auth.Client
	toolkit *identitytoolkit.Service
}

var _ session.Authenticator = (*Auth)(nil) // interface compliance check

func New(ctx context.Context, app *firebase.App, conf *core.Config) (*Auth, error) {
	if conf.Firebase.APIKey == "" {
		return nil, errors.New("firebase API key is required for password sign-in")
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "initializing auth client")
	}
	toolkit, err := identitytoolkit.NewService(ctx, option.WithAPIKey(conf.Firebase.APIKey))
	if err != nil {
		return nil, errors.Wrap(err, "initializing identity toolkit")
	}
	return &Auth{client: client, toolkit: toolkit}, nil
}

func (a *Auth) CreateAccount(ctx context.Context, email, password string) (session.Identity, error) {
	params := (&auth.UserToCreate{}).
		Email(core.CleanString(email, true /* lower */)).
		Password(password)
	rec, err := a.client.CreateUser(ctx, params)
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return session.Identity{}, user.ErrEmailExists
		}
		return session.Identity{}, errors.Wrap(err, "creating account")
	}
	return session.Identity{UID: rec.UID, Email: rec.Email}, nil
}

// Verify checks the email/password pair without signing in.
func (a *Auth) Verify(ctx context.Context, email, password string) (session.Identity, error) {
	req := &identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:    core.CleanString(email, true /* lower */),
		Password: password,
	}
	res, err := a.toolkit.Relyingparty.VerifyPassword(req).Context(ctx).Do()
	if err != nil {
		if isInvalidCredential(err) {
			return session.Identity{}, session.ErrInvalidCredential
		}
		return session.Identity{}, errors.Wrap(err, "verifying password")
	}
	return session.Identity{UID: res.LocalId, Email: res.Email}, nil
}

func isInvalidCredential(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	for _, code := range invalidCredentialCodes {
		if strings.HasPrefix(gerr.Message, code) {
			return true
		}
	}
	return false
}

func (a *Auth) SignIn(ctx context.Context, email, password string) (session.Identity, error) {
	id, err := a.Verify(ctx, email, password)
	if err != nil {
		return session.Identity{}, err
	}
	a.Publish(&id)
	return id, nil
}

func (a *Auth) SignOut(ctx context.Context) error {
	a.Publish(nil)
	return nil
}

func (a *Auth) LookupEmail(ctx context.Context, email string) (session.Identity, error) {
	rec, err := a.client.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if auth.IsUserNotFound(err) {
			return session.Identity{}, session.ErrNoAccount
		}
		return session.Identity{}, errors.Wrap(err, "looking up account")
	}
	return session.Identity{UID: rec.UID, Email: rec.Email}, nil
}

func (a *Auth) SetPassword(ctx context.Context, uid, password string) error {
	_, err := a.client.UpdateUser(ctx, uid, (&auth.UserToUpdate{}).Password(password))
	if auth.IsUserNotFound(err) {
		return session.ErrNoAccount
	}
	return errors.Wrap(err, "updating password")
}

func (a *Auth) DeleteAccount(ctx context.Context, uid string) error {
	err := a.client.DeleteUser(ctx, uid)
	if auth.IsUserNotFound(err) {
		return nil
	}
	return errors.Wrap(err, "deleting account")
}
