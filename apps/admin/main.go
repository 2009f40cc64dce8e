package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/langhour/tracker/apps/container"
	"github.com/langhour/tracker/core"
	logsvc "github.com/langhour/tracker/services/logger"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewLogger(conf)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	c, err := container.New(ctx, conf, logger)
	cancel()
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up dependencies: %v", err), err)
	}

	cli := commandLine{
		db:       c.DB,
		usrSvc:   c.UserSvc,
		hoursSvc: c.HoursSvc,
		reminder: c.ReminderSvc,
		out:      os.Stdout,
	}
	err = cli.run(os.Args)

	_ = c.Close()
	logger.Sync()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
