package main

import (
	"context"

	"github.com/trezcool/markbook/core/user"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	np := user.NewPassword{Username: uname, Password: pwd}
	if err := np.Validate(cli.validate); err != nil {
		return err
	}
	_, err := cli.usrSvc.SetPassword(context.Background(), np.Username, np.Password)
	return err
}
