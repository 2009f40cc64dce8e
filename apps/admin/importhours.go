package main

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"github.com/langhour/tracker/storage/workbook"
)

var errNoRows = errors.New("no valid rows to import")

// importHours logs the rows of an xlsx workbook for a member.
// Invalid rows are reported and skipped; nothing is stored when none is valid.
func (cli *commandLine) importHours(uname, path, sheet string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening workbook")
	}
	defer f.Close()

	res, err := workbook.Read(f, sheet)
	if err != nil {
		return err
	}
	for _, re := range res.Errors {
		cli.printf("row %d: %s\n", re.Row, re.Err)
	}
	if len(res.Entries) == 0 {
		return errNoRows
	}

	entries, err := cli.hoursSvc.BulkLog(ctx, usr.ID, res.Entries)
	if err != nil {
		return errors.Wrap(err, "logging hours")
	}
	cli.printf("imported %d entries for %q (%d rejected, %d blank)\n", len(entries), usr.Username, len(res.Errors), res.Skipped)
	return nil
}
