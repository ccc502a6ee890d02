package main

import (
	"context"
	"fmt"

	"github.com/d2monteblanco/ki-aikido-system/core/user"
)

// addUser creates a user, or updates the role, dojo & password of the one registered with email.
func (cli *commandLine) addUser(name, email, pwd string, isAdmin bool, dojoID int) error {
	nu := user.NewUser{
		Name:            name,
		Email:           email,
		Role:            user.RoleDojoUser,
		Password:        pwd,
		PasswordConfirm: pwd,
	}
	if isAdmin {
		nu.Role = user.RoleAdmin
	}
	if dojoID > 0 {
		nu.DojoID = &dojoID
	}

	ctx := context.Background()
	if nu.DojoID != nil {
		if _, err := cli.dojoSvc.GetByID(ctx, *nu.DojoID); err != nil {
			return err
		}
	}
	usr, err := cli.usrSvc.Create(ctx, nu)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "user %d <%s> saved with role %s\n", usr.ID, usr.Email, usr.Role)
	return nil
}
