package main

import (
	"context"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(ctx, uname)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		now := core.NowFunc().UTC()
		usr = user.User{
			Name:      uname,
			Username:  uname,
			Email:     email,
			Role:      user.RoleLearner,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	if isAdmin {
		usr.Role = user.RoleAdmin
	}
	usr.IsActive = true
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if usr.ID == "" {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		usr.UpdatedAt = core.NowFunc().UTC()
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	}
	return err
}
