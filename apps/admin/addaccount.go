package main

import (
	"context"
	"time"

	"github.com/ecampus-dev/aula/core"
	"github.com/ecampus-dev/aula/core/account"
)

// addAccount updates or creates an account with a local password.
func (cli *commandLine) addAccount(name, email, role, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)
	role = core.CleanString(role, true /* lower */)

	acct, err := cli.acctRepo.GetAccount(ctx, account.GetFilter{Email: email})
	if err != nil {
		if err != account.ErrNotFound {
			return err
		}
		acct = account.Account{
			Email:     email,
			CreatedAt: time.Now().UTC(),
		}
	}
	acct.Name = name
	acct.Role = role
	acct.SetActive(true)
	if err := acct.SetPassword(pwd); err != nil {
		return err
	}
	acct.UpdatedAt = time.Now().UTC()
	if _, err := cli.acctRepo.UpdateOrCreateAccount(ctx, acct); err != nil {
		return err
	}
	return nil
}
