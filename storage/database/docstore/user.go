package docstore

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/user"
)

type userRepository struct {
	store  core.DocumentStore
	logger core.Logger
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(store core.DocumentStore, logger core.Logger) user.Repository {
	return &userRepository{store: store, logger: logger}
}

func userPath(uid string) string {
	return core.Path(core.UsersCollection, uid)
}

func decodeUser(uid string, rec core.Record) (user.User, []string, error) {
	d := newDecoder(userPath(uid), rec)
	usr := user.User{UID: uid}

	var err error
	if usr.Email, err = d.str("email", false); err != nil {
		return user.User{}, nil, err
	}
	if usr.Name, err = d.str("name", true); err != nil {
		return user.User{}, nil, err
	}
	if usr.Role, err = d.str("role", true); err != nil {
		return user.User{}, nil, err
	}
	if usr.Role != user.RoleStudent && usr.Role != user.RoleTeacher {
		return user.User{}, nil, d.fail("role", "is unknown")
	}

	grade, ok, err := d.integer("grade", false)
	if err != nil {
		return user.User{}, nil, err
	}
	if ok {
		usr.Grade = null.IntFrom(int(grade))
	}
	usr.Subjects = d.strings("subjects")
	return usr, d.coerced, nil
}

func encodeUser(usr user.User) core.Record {
	rec := core.Record{
		"uid":   usr.UID,
		"email": usr.Email,
		"role":  usr.Role,
		"name":  usr.Name,
	}
	if usr.Grade.Valid {
		rec["grade"] = usr.Grade.Int
	}
	if len(usr.Subjects) > 0 {
		rec["subjects"] = usr.Subjects
	}
	return rec
}

func (repo *userRepository) decode(uid string, rec core.Record) (user.User, error) {
	usr, coerced, err := decodeUser(uid, rec)
	if err != nil {
		return user.User{}, err
	}
	warnCoerced(repo.logger, userPath(uid), coerced)
	return usr, nil
}

func (repo *userRepository) decodeAll(recs map[string]core.Record) []user.User {
	users := make([]user.User, 0, len(recs))
	for _, uid := range sortedKeys(recs) {
		usr, err := repo.decode(uid, recs[uid])
		if err != nil {
			skip(repo.logger, err)
			continue
		}
		users = append(users, usr)
	}
	return users
}

func (repo *userRepository) GetUser(ctx context.Context, uid string) (user.User, error) {
	rec, err := repo.store.Get(ctx, userPath(uid))
	if err != nil {
		if errors.Cause(err) == core.ErrNoRecord {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "reading user")
	}
	return repo.decode(uid, rec)
}

func (repo *userRepository) QueryUsersByGrade(ctx context.Context, grade int) ([]user.User, error) {
	recs, err := repo.store.QueryEqual(ctx, core.UsersCollection, "grade", grade)
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return repo.decodeAll(recs), nil
}

func (repo *userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	recs, err := repo.store.List(ctx, core.UsersCollection)
	if err != nil {
		return nil, errors.Wrap(err, "listing users")
	}
	return repo.decodeAll(recs), nil
}

func (repo *userRepository) SaveUser(ctx context.Context, usr user.User) error {
	return repo.store.Set(ctx, userPath(usr.UID), encodeUser(usr))
}

func (repo *userRepository) DeleteUser(ctx context.Context, uid string) error {
	return repo.store.Delete(ctx, userPath(uid))
}
