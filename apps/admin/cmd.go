package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/langhour/tracker/core/hours"
	"github.com/langhour/tracker/core/user"
	remindersvc "github.com/langhour/tracker/services/reminder"
	"github.com/langhour/tracker/storage/database"
)

var (
	readPasswordFunc  = term.ReadPassword      // mockable
	runMigrationsFunc = database.RunMigrations // mockable

	errHelp       = errors.New("help provided")
	errNoDatabase = errors.New("migrations need a postgres database")
)

// reminderRunner sends one batch of monthly reminders.
type reminderRunner interface {
	Run(ctx context.Context) (remindersvc.Report, error)
}

type commandLine struct {
	db       *sqlx.DB // nil with the dummy engine
	usrSvc   user.Service
	hoursSvc hours.Service
	reminder reminderRunner
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  adduser -username USERNAME [-email EMAIL] [-first NAME -last NAME] [-admin] - create or update a user")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS...] - run a goose command (up, down, status, version, redo...)")
	fmt.Fprintln(cli.out, "  importhours -username USERNAME|EMAIL -file BOOK.xlsx [-sheet NAME] - log hours from a workbook")
	fmt.Fprintln(cli.out, "  remind - send the monthly reminders now")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserCmd.SetOutput(cli.out)
	addUserUname := addUserCmd.String("username", "", "The user's username. The password will be prompted next.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserFirst := addUserCmd.String("first", "", "The user's first name (defaults to the username).")
	addUserLast := addUserCmd.String("last", "", "The user's last name (defaults to the username).")
	addUserAdmin := addUserCmd.Bool("admin", false, "Give the user every admin role.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordCmd.SetOutput(cli.out)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	importCmd := flag.NewFlagSet("importhours", flag.ContinueOnError)
	importCmd.SetOutput(cli.out)
	importUname := importCmd.String("username", "", "The username or email of the member the hours are logged for.")
	importFile := importCmd.String("file", "", "Path of the xlsx workbook.")
	importSheet := importCmd.String("sheet", "", "Sheet to read (defaults to the first one).")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserUname == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(newUserArgs{
			username:  *addUserUname,
			email:     *addUserEmail,
			firstName: *addUserFirst,
			lastName:  *addUserLast,
			password:  pwd,
			isAdmin:   *addUserAdmin,
		})

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "importhours":
		if err := importCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *importUname == "" || *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importHours(*importUname, *importFile, *importSheet)

	case "remind":
		return cli.remind()

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	return string(pwd), nil
}

func (cli *commandLine) printf(format string, a ...interface{}) {
	fmt.Fprintf(cli.out, format, a...)
}
