package main

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoDatabase
	}
	return runMigrationsFunc(cli.db, args[0], args[1:]...)
}
