// Package shared wires the services every app needs from the configuration.
package shared

import (
	"context"

	firebase "firebase.google.com/go/v4"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/mark"
	"github.com/trezcool/alama/core/report"
	"github.com/trezcool/alama/core/session"
	"github.com/trezcool/alama/core/stats"
	"github.com/trezcool/alama/core/subject"
	"github.com/trezcool/alama/core/user"
	"github.com/trezcool/alama/services/auth/firebaseauth"
	"github.com/trezcool/alama/services/auth/localauth"
	"github.com/trezcool/alama/services/email"
	"github.com/trezcool/alama/services/firebaseapp"
	"github.com/trezcool/alama/storage/database"
	"github.com/trezcool/alama/storage/database/docstore"
)

var ErrUnknownAuthProvider = errors.New("unknown auth provider")

// Authenticator is a session.Authenticator that can also manage accounts.
type Authenticator interface {
	session.Authenticator
	// Verify checks the email/password pair without signing in.
	Verify(ctx context.Context, email, password string) (session.Identity, error)
	LookupEmail(ctx context.Context, email string) (session.Identity, error)
	SetPassword(ctx context.Context, uid, password string) error
	DeleteAccount(ctx context.Context, uid string) error
}

var (
	_ Authenticator = (*localauth.Auth)(nil)
	_ Authenticator = (*firebaseauth.Auth)(nil)
)

type Deps struct {
	Conf       *core.Config
	Logger     core.Logger
	Store      core.DocumentStore
	Auth       Authenticator
	MailSvc    core.EmailService
	UserSvc    *user.Service
	MarkSvc    *mark.Service
	SubjectSvc *subject.Service
	Reports    *report.Builder
	Stats      *stats.Service
	Validate   *validator.Validate
	Translator ut.Translator
}

// Setup opens the store, the authenticator and every service. Close the Deps when done.
func Setup(ctx context.Context, conf *core.Config, logger core.Logger) (*Deps, error) {
	store, auth, err := open(ctx, conf)
	if err != nil {
		return nil, err
	}
	deps := NewDeps(conf, logger, store, auth)
	deps.MailSvc = emailsvc.NewService(conf, logger)
	return deps, nil
}

// NewDeps builds the services over an opened store. MailSvc is left to the caller.
func NewDeps(conf *core.Config, logger core.Logger, store core.DocumentStore, auth Authenticator) *Deps {
	users := user.NewService(docstore.NewUserRepository(store, logger))
	marks := mark.NewService(docstore.NewMarkRepository(store, logger))
	subjects := subject.NewService(docstore.NewSubjectRepository(store, logger))

	validate, translator := NewValidator(conf)

	return &Deps{
		Conf:       conf,
		Logger:     logger,
		Store:      store,
		Auth:       auth,
		UserSvc:    users,
		MarkSvc:    marks,
		SubjectSvc: subjects,
		Reports:    report.NewBuilder(users, subjects, marks),
		Stats:      stats.NewService(users, marks, subjects),
		Validate:   validate,
		Translator: translator,
	}
}

// NewValidator returns a validator with every validator of the app registered.
func NewValidator(conf *core.Config) (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator, conf.School.MinGrade, conf.School.MaxGrade)
	mark.InitValidators(validate, translator)
	return validate, translator
}

func open(ctx context.Context, conf *core.Config) (core.DocumentStore, Authenticator, error) {
	app, err := initFirebase(ctx, conf)
	if err != nil {
		return nil, nil, err
	}

	store, err := database.Open(ctx, conf, app)
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening database")
	}

	var auth Authenticator
	switch conf.Auth.Provider {
	case core.AuthLocal, "":
		auth = localauth.New(store)
	case core.AuthFirebase:
		if auth, err = firebaseauth.New(ctx, app, conf); err != nil {
			_ = store.Close()
			return nil, nil, err
		}
	default:
		_ = store.Close()
		return nil, nil, errors.Wrap(ErrUnknownAuthProvider, conf.Auth.Provider)
	}
	return store, auth, nil
}

func initFirebase(ctx context.Context, conf *core.Config) (*firebase.App, error) {
	if !database.NeedsFirebase(conf) {
		return nil, nil
	}
	return firebaseapp.New(ctx, conf)
}

func (d *Deps) Close() error {
	return d.Store.Close()
}
