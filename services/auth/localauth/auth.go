// Package localauth authenticates against bcrypt hashes kept in the document store.
package localauth

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/session"
	"github.com/trezcool/alama/core/user"
	"github.com/trezcool/alama/services/auth"
)

// Auth is a session.Authenticator for a single process.
type Auth struct {
	authsvc.Notifier

	store core.DocumentStore
	cost  int
	mu    sync.Mutex // serializes account creation
}

var _ session.Authenticator = (*Auth)(nil) // interface compliance check

func New(store core.DocumentStore) *Auth {
	return &Auth{store: store, cost: bcrypt.DefaultCost}
}

// NewMock hashes with the minimum cost.
func NewMock(store core.DocumentStore) *Auth {
	return &Auth{store: store, cost: bcrypt.MinCost}
}

func credentialPath(uid string) string {
	return core.Path(core.CredentialsCollection, uid)
}

func (a *Auth) find(ctx context.Context, email string) (session.Identity, []byte, error) {
	email = core.CleanString(email, true /* lower */)
	recs, err := a.store.QueryEqual(ctx, core.CredentialsCollection, "email", email)
	if err != nil {
		return session.Identity{}, nil, errors.Wrap(err, "querying credentials")
	}
	for uid, rec := range recs {
		hash, _ := rec["passwordHash"].(string)
		return session.Identity{UID: uid, Email: email}, []byte(hash), nil
	}
	return session.Identity{}, nil, session.ErrNoAccount
}

func (a *Auth) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return "", errors.Wrap(err, "hashing password")
	}
	return string(hash), nil
}

func (a *Auth) CreateAccount(ctx context.Context, email, password string) (session.Identity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	email = core.CleanString(email, true /* lower */)
	_, _, err := a.find(ctx, email)
	if err == nil {
		return session.Identity{}, user.ErrEmailExists
	}
	if errors.Cause(err) != session.ErrNoAccount {
		return session.Identity{}, err
	}

	hash, err := a.hash(password)
	if err != nil {
		return session.Identity{}, err
	}
	id := session.Identity{UID: uuid.NewString(), Email: email}
	rec := core.Record{"email": email, "passwordHash": hash, "createdAt": core.NowMillis()}
	if err = a.store.Set(ctx, credentialPath(id.UID), rec); err != nil {
		return session.Identity{}, errors.Wrap(err, "saving credentials")
	}
	return id, nil
}

// Verify checks the email/password pair without signing in.
func (a *Auth) Verify(ctx context.Context, email, password string) (session.Identity, error) {
	id, hash, err := a.find(ctx, email)
	if err != nil {
		if errors.Cause(err) == session.ErrNoAccount {
			return session.Identity{}, session.ErrInvalidCredential
		}
		return session.Identity{}, err
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return session.Identity{}, session.ErrInvalidCredential
	}
	return id, nil
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

// LookupEmail returns the account registered with email, or session.ErrNoAccount.
func (a *Auth) LookupEmail(ctx context.Context, email string) (session.Identity, error) {
	id, _, err := a.find(ctx, email)
	return id, err
}

func (a *Auth) SetPassword(ctx context.Context, uid, password string) error {
	if _, err := a.store.Get(ctx, credentialPath(uid)); err != nil {
		if errors.Cause(err) == core.ErrNoRecord {
			return session.ErrNoAccount
		}
		return err
	}
	hash, err := a.hash(password)
	if err != nil {
		return err
	}
	return a.store.Update(ctx, credentialPath(uid), core.Record{"passwordHash": hash})
}

func (a *Auth) DeleteAccount(ctx context.Context, uid string) error {
	return a.store.Delete(ctx, credentialPath(uid))
}
