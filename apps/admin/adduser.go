package main

import (
	"context"
	"time"

	"github.com/edufi/backend/core"
	"github.com/edufi/backend/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(email, fname, lname, pwd string, isAdmin bool) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)
	now := time.Now().UTC()

	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Email:     email,
			Role:      user.RoleStudent,
			CreatedAt: now,
		}
	}
	if fname != "" {
		usr.FirstName = core.CleanString(fname)
	}
	if lname != "" {
		usr.LastName = core.CleanString(lname)
	}
	if isAdmin {
		usr.Role = user.RoleAdmin
	}
	usr.UpdatedAt = now
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	active := true
	if usr.ID == 0 {
		usr.IsActive = active
		_, err = cli.usrRepo.CreateUser(ctx, usr)
		return err
	}
	_, err = cli.usrRepo.UpdateUser(ctx, usr, &active)
	return err
}
