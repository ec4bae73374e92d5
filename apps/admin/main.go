package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/alama/apps/shared"
	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/services/logger"
)

var logger *logsvc.RollbarLogger

func main() {
	conf := core.NewConfig()

	logger = logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(conf.RollbarToken != "" && !conf.Debug)

	ctx := context.Background()
	deps, err := shared.Setup(ctx, conf, logger)
	errAndDie(err)

	// start CLI
	cli := commandLine{deps: deps, out: os.Stdout}
	err = cli.run(ctx, os.Args)
	if cErr := deps.Close(); cErr != nil {
		logger.Error("closing database", cErr)
	}
	if err != nil {
		if err != errHelp {
			logger.Error(err.Error(), err)
		}
		logger.Close()
		os.Exit(1)
	}
	logger.Close()
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
