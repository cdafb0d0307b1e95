package main

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/room4-2/speechwire/logx"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logx.Log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "speechwire",
		Usage: "Speech synthesis client, relay server and Ark/Gemini helpers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "trace, debug, info, warn, error or none (overrides LOG_LEVEL)",
				EnvVars: []string{"SPEECHWIRE_LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			synthCommand(),
			chatCommand(),
			imageCommand(),
			videoCommand(),
		},
	}
}
