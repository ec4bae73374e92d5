// Package session tracks who is signed in and with which profile.
package session

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/user"
)

// State of a Store.
type State int

const (
	Bootstrapping State = iota
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Bootstrapping:
		return "bootstrapping"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	}
	return "unknown"
}

// Messages shown to the user.
const (
	MsgInvalidCredential = "Invalid email or password"
	MsgLoginFailed       = "Failed to log in"
	MsgSignupSucceeded   = "Account created successfully!"
	MsgSignupFailed      = "Failed to create account"
	MsgLoggedOut         = "Logged out successfully"
	MsgProfileNotFound   = "User data not found"
	MsgAuthError         = "Authentication error occurred"
)

var (
	// ErrInvalidCredential is returned by an Authenticator when the email/password pair is wrong.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrNoAccount is returned by account lookups when nothing is registered.
	ErrNoAccount = errors.New("account not found")
)

// Identity is an authenticated account.
type Identity struct {
	UID   string
	Email string
}

type (
	// Authenticator is the authentication service.
	Authenticator interface {
		// CreateAccount creates an account; it returns user.ErrEmailExists when the email is taken.
		CreateAccount(ctx context.Context, email, password string) (Identity, error)
		// SignIn returns ErrInvalidCredential when the email/password pair is wrong.
		SignIn(ctx context.Context, email, password string) (Identity, error)
		SignOut(ctx context.Context) error
		// OnSessionChange calls fn with the current session right away, then on each change.
		// fn receives nil when signed out.
		OnSessionChange(fn func(*Identity)) (unsubscribe func())
	}

	// Profiles reads and writes user profiles.
	Profiles interface {
		Get(ctx context.Context, uid string) (user.User, error)
		Create(ctx context.Context, uid string, nu user.NewUser) (user.User, error)
	}
)

// Snapshot is the state of a Store at one point in time.
type Snapshot struct {
	State State
	User  user.User // set when Authenticated
	Err   error     // why the last session could not be resolved, if it could not
}

// Store is the session of one process.
type Store struct {
	ctx      context.Context
	auth     Authenticator
	profiles Profiles
	logger   core.Logger

	handleMu sync.Mutex // serializes session changes

	mu        sync.RWMutex
	snap      Snapshot
	listeners map[int]func(Snapshot)
	nextID    int
	changed   chan struct{} // closed and replaced on every change
	stop      func()

	pending     bool // a snapshot was committed but not dispatched yet
	dispatching bool
}

func NewStore(ctx context.Context, auth Authenticator, profiles Profiles, logger core.Logger) *Store {
	return &Store{
		ctx:       ctx,
		auth:      auth,
		profiles:  profiles,
		logger:    logger,
		snap:      Snapshot{State: Bootstrapping},
		listeners: make(map[int]func(Snapshot)),
		changed:   make(chan struct{}),
	}
}

// Start subscribes to session changes. The initial session is resolved before Start returns
// when the Authenticator reports it synchronously.
func (s *Store) Start() {
	stop := s.auth.OnSessionChange(s.handle)
	s.mu.Lock()
	s.stop = stop
	s.mu.Unlock()
}

// Close unsubscribes from session changes.
func (s *Store) Close() {
	s.mu.Lock()
	stop := s.stop
	s.stop = nil
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// handle commits the snapshot of id under handleMu, then notifies the listeners without it.
func (s *Store) handle(id *Identity) {
	s.handleMu.Lock()
	s.commit(s.resolve(id))
	s.handleMu.Unlock()

	s.dispatch()
}

func (s *Store) resolve(id *Identity) Snapshot {
	if id == nil {
		return Snapshot{State: Unauthenticated}
	}

	usr, err := s.profiles.Get(s.ctx, id.UID)
	switch {
	case err == nil:
		return Snapshot{State: Authenticated, User: usr}
	case errors.Cause(err) == user.ErrNotFound:
		s.logger.Warn("no profile for signed in account", map[string]interface{}{"uid": id.UID})
	default:
		s.logger.Error("fetching profile", errors.Wrap(err, "fetching profile"))
	}
	return Snapshot{State: Unauthenticated, Err: err}
}

func (s *Store) commit(snap Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.pending = true
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()
}

// dispatch tells the listeners about the latest snapshot. One goroutine dispatches at a time.
// A change made meanwhile, by a listener included, restarts the round with the newer snapshot.
func (s *Store) dispatch() {
	s.mu.Lock()
	if s.dispatching {
		s.mu.Unlock()
		return
	}
	s.dispatching = true
	for s.pending {
		s.pending = false
		snap := s.snap
		listeners := s.sortedListeners()
		s.mu.Unlock()

		for _, fn := range listeners {
			fn(snap)
			if s.hasPending() {
				break
			}
		}
		s.mu.Lock()
	}
	s.dispatching = false
	s.mu.Unlock()
}

func (s *Store) hasPending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending
}

// sortedListeners returns the listeners in subscription order. s.mu must be held.
func (s *Store) sortedListeners() []func(Snapshot) {
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	return listeners
}

// Current returns the current snapshot.
func (s *Store) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Subscribe calls fn on every change until unsubscribe is called.
// fn may sign in or out; a listener only misses states that were replaced before its turn.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Wait blocks until the session is resolved or ctx is done.
func (s *Store) Wait(ctx context.Context) (Snapshot, error) {
	for {
		s.mu.RLock()
		snap, changed := s.snap, s.changed
		s.mu.RUnlock()
		if snap.State != Bootstrapping {
			return snap, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}

// Allow reports whether the current session may see pages reserved to role.
func (s *Store) Allow(role string) bool {
	snap := s.Current()
	return snap.State == Authenticated && snap.User.Role == role
}

// Login signs in. The state changes once the Authenticator reports the new session.
func (s *Store) Login(ctx context.Context, email, password string) error {
	_, err := s.auth.SignIn(ctx, core.CleanString(email, true /* lower */), password)
	return err
}

// Signup creates the account and its profile, then signs in. nu must be validated beforehand.
func (s *Store) Signup(ctx context.Context, nu user.NewUser) (user.User, error) {
	usr, err := Register(ctx, s.auth, s.profiles, nu)
	if err != nil {
		return user.User{}, err
	}
	if _, err = s.auth.SignIn(ctx, nu.Email, nu.Password); err != nil {
		return usr, errors.Wrap(err, "signing in")
	}
	return usr, nil
}

// Logout signs out.
func (s *Store) Logout(ctx context.Context) error {
	return s.auth.SignOut(ctx)
}

// AccountCreator creates authentication accounts.
type AccountCreator interface {
	CreateAccount(ctx context.Context, email, password string) (Identity, error)
}

// ProfileCreator writes new profiles.
type ProfileCreator interface {
	Create(ctx context.Context, uid string, nu user.NewUser) (user.User, error)
}

// Register creates the account of nu, then writes its profile.
func Register(ctx context.Context, auth AccountCreator, profiles ProfileCreator, nu user.NewUser) (user.User, error) {
	id, err := auth.CreateAccount(ctx, nu.Email, nu.Password)
	if err != nil {
		if errors.Cause(err) == user.ErrEmailExists {
			return user.User{}, core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return user.User{}, errors.Wrap(err, "creating account")
	}
	usr, err := profiles.Create(ctx, id.UID, nu)
	if err != nil {
		return user.User{}, errors.Wrap(err, "creating profile")
	}
	return usr, nil
}

// LoginMessage turns a login error into the message shown to the user.
func LoginMessage(err error) string {
	if errors.Cause(err) == ErrInvalidCredential {
		return MsgInvalidCredential
	}
	return MsgLoginFailed
}
