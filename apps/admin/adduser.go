package main

import (
	"context"

	"github.com/langhour/tracker/core"
	"github.com/langhour/tracker/core/user"
)

type newUserArgs struct {
	username  string
	email     string
	firstName string
	lastName  string
	password  string
	isAdmin   bool
}

// addUser updates or creates a user.User; an existing user is reactivated.
func (cli *commandLine) addUser(args newUserArgs) error {
	ctx := context.Background()
	uname := core.CleanString(args.username, true /* lower */)
	email := core.CleanString(args.email, true /* lower */)

	var roles []string
	if args.isAdmin {
		roles = user.AdminRoles
	}

	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil && err != user.ErrNotFound {
		return err
	}
	if err == nil {
		if email == "" {
			email = usr.Email
		}
		active := true
		usr, err = cli.usrSvc.Update(ctx, usr, user.UpdateUser{
			FirstName: fallback(args.firstName, usr.FirstName),
			LastName:  fallback(args.lastName, usr.LastName),
			Username:  usr.Username,
			Email:     email,
			IsActive:  &active,
			Roles:     roles,
			Password:  args.password,
		})
		if err != nil {
			return err
		}
		cli.printf("updated user %q\n", usr.Username)
		return nil
	}

	if err = cli.usrSvc.CheckUniqueness(ctx, uname, email); err != nil {
		return err
	}
	if roles == nil {
		roles = []string{user.RoleMember}
	}
	usr, err = cli.usrSvc.Create(ctx, user.NewUser{
		FirstName: fallback(args.firstName, uname),
		LastName:  fallback(args.lastName, uname),
		Username:  uname,
		Email:     email,
		Password:  args.password,
		Roles:     roles,
	})
	if err != nil {
		return err
	}
	cli.printf("created user %q\n", usr.Username)
	return nil
}

func fallback(val, orig string) string {
	if v := core.CleanString(val); v != "" {
		return v
	}
	return orig
}
