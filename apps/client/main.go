package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"golang.org/x/term"

	"github.com/trezcool/alama/apps/client/cli"
	"github.com/trezcool/alama/apps/shared"
	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/services/logger"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(log.New(os.Stderr, "CLIENT : ", log.LstdFlags), conf)
	logger.Enable(conf.RollbarToken != "" && !conf.Debug)
	defer logger.Close()

	env := &cli.Env{
		Conf:   conf,
		Logger: logger,
		Open: func(ctx context.Context) (*shared.Deps, error) {
			return shared.Setup(ctx, conf, logger)
		},
		ReadPassword: readPassword,
	}

	if err := cli.NewRootCommand(env).ExecuteContext(context.Background()); err != nil {
		logger.Close()
		os.Exit(1)
	}
}

func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pwd, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
