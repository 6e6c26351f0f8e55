package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/ecampus-dev/aula/core"
	"github.com/ecampus-dev/aula/core/account"
)

// sync performs one full sync with the credentials stored on the account.
func (cli *commandLine) sync(email string) error {
	ctx := context.Background()
	acct, err := cli.acctRepo.GetAccount(ctx, account.GetFilter{Email: core.CleanString(email, true /* lower */)})
	if err != nil {
		return err
	}

	res, err := cli.syncSvc.Run(ctx, acct)
	if err != nil {
		return err
	}

	fmt.Printf("sync %s: %d courses, %d coursework, %d submissions (%d skipped)\n",
		res.Outcome(), res.CoursesSynced, res.CourseWorkSynced, res.SubmissionsSynced, res.SubmissionsSkipped)
	if len(res.Failures) > 0 {
		fmt.Printf("failures:\n  %s\n", strings.Join(res.Failures, "\n  "))
	}
	return nil
}
