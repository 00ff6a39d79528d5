package sqlxrepos

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/user"
)

const userTable = `"user"`

var userColumns = []string{
	"id", "name", "username", "email", "role", "is_active", "points", "xp",
	"streak_days", "last_streak_date", "password_hash", "created_at", "updated_at", "last_login",
}

type UserRepository struct {
	db core.DB
}

var _ user.Repository = (*UserRepository)(nil)

func NewUserRepository(db core.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (repo *UserRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	qb := psql.Select("username", "email").
		From(userTable).
		Where(sq.Or{
			sq.Eq{"LOWER(username)": strings.ToLower(username)},
			sq.Eq{"LOWER(email)": strings.ToLower(email)},
		})
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, usr := range excludedUsers {
			ids = append(ids, usr.ID)
		}
		qb = qb.Where(sq.NotEq{"id": ids})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}

	var clashes []struct {
		Username string `db:"username"`
		Email    string `db:"email"`
	}
	if err = repo.db.SelectContext(ctx, &clashes, query, args...); err != nil {
		return errors.Wrap(err, "checking uniqueness")
	}
	for _, clash := range clashes {
		if strings.EqualFold(clash.Username, username) {
			return user.ErrUsernameExists
		}
		if strings.EqualFold(clash.Email, email) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *UserRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	query, args, err := psql.Insert(userTable).
		Columns("name", "username", "email", "role", "is_active", "points", "xp",
			"streak_days", "last_streak_date", "password_hash", "created_at", "updated_at", "last_login").
		Values(usr.Name, usr.Username, usr.Email, usr.Role, usr.IsActive, usr.Points, usr.XP,
			usr.StreakDays, usr.LastStreakDate, usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt, usr.LastLogin).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}
	if err = repo.db.GetContext(ctx, &usr.ID, query, args...); err != nil {
		return user.User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

func (repo *UserRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	query, args, err := psql.Select(userColumns...).
		From(userTable).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	users := []user.User{}
	if err = repo.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (repo *UserRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.getBy(ctx, sq.Eq{"id": id})
}

func (repo *UserRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	return repo.getBy(ctx, sq.Eq{"LOWER(username)": strings.ToLower(username)})
}

func (repo *UserRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getBy(ctx, sq.Eq{"LOWER(email)": strings.ToLower(email)})
}

func (repo *UserRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	uname := strings.ToLower(username)
	return repo.getBy(ctx, sq.Or{
		sq.Eq{"LOWER(username)": uname},
		sq.Eq{"LOWER(email)": uname},
	})
}

func (repo *UserRepository) getBy(ctx context.Context, pred interface{}) (user.User, error) {
	query, args, err := psql.Select(userColumns...).
		From(userTable).
		Where(pred).
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}

	var usr user.User
	if err = repo.db.GetContext(ctx, &usr, query, args...); err != nil {
		if isNoRows(err) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return usr, nil
}

func (repo *UserRepository) FilterUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	qb := psql.Select(userColumns...).From(userTable)
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		qb = qb.Where(sq.Or{
			sq.ILike{"name": pattern},
			sq.ILike{"username": pattern},
			sq.ILike{"email": pattern},
		})
	}
	if filter.Role != "" {
		qb = qb.Where(sq.Eq{"role": filter.Role})
	}
	if filter.IsActive != nil {
		qb = qb.Where(sq.Eq{"is_active": *filter.IsActive})
	}
	if !filter.CreatedFrom.IsZero() {
		qb = qb.Where(sq.GtOrEq{"created_at": filter.CreatedFrom})
	}
	if !filter.CreatedTo.IsZero() {
		qb = qb.Where(sq.LtOrEq{"created_at": filter.CreatedTo})
	}

	query, args, err := qb.OrderBy("created_at ASC").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	users := []user.User{}
	if err = repo.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}
	return users, nil
}

func (repo *UserRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	query, args, err := psql.Update(userTable).
		Set("name", usr.Name).
		Set("username", usr.Username).
		Set("email", usr.Email).
		Set("role", usr.Role).
		Set("is_active", usr.IsActive).
		Set("points", usr.Points).
		Set("xp", usr.XP).
		Set("streak_days", usr.StreakDays).
		Set("last_streak_date", usr.LastStreakDate).
		Set("password_hash", usr.PasswordHash).
		Set("updated_at", usr.UpdatedAt).
		Set("last_login", usr.LastLogin).
		Where(sq.Eq{"id": usr.ID}).
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}

	res, err := executor(repo.db, exec).ExecContext(ctx, query, args...)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *UserRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := psql.Delete(userTable).
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	_, err = repo.db.ExecContext(ctx, query, args...)
	return errors.Wrap(err, "deleting users")
}
