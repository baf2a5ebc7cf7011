package main

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/carrotlabs/go-carrot-market/build"
)

const (
	FlagRepo = "repo"
)

func main() {
	app := &cli.App{
		Name:                 "carrot-market",
		Usage:                "Client for the decentralized GPU compute marketplace: list GPUs for rent, post and run jobs, and settle payment on the ledger.",
		EnableBashCompletion: true,
		Version:              build.UserVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    FlagRepo,
				EnvVars: []string{"CARROT_PATH"},
				Usage:   "client repo path",
				Value:   "~/.carrot/market",
			},
		},
		Commands: []*cli.Command{
			runCmd,
			gpuCmd,
			jobCmd,
			walletCmd,
			infoCmd,
		},
	}
	app.Setup()

	if err := app.Run(os.Args); err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
	}
}
