package main

import (
	"context"
)

func (cli *commandLine) remind() error {
	report, err := cli.reminder.Run(context.Background())
	if err != nil {
		return err
	}
	cli.printf("checked %d members: %d notified, %d failed\n", report.Checked, report.Notified, report.Failed)
	return nil
}
