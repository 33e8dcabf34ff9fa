package main

import (
	"context"
	"fmt"

	"github.com/trezcool/markbook/core/user"
)

// addUser registers a new user.User
func (cli *commandLine) addUser(uname, pwd string) error {
	nu := user.NewUser{Username: uname, Password: pwd}
	if err := nu.Validate(cli.validate); err != nil {
		return err
	}
	usr, err := cli.usrSvc.Register(context.Background(), nu)
	if err != nil {
		return err
	}
	fmt.Printf("user %q created (id %d)\n", usr.Username, usr.ID)
	return nil
}
