package main

import (
	"fmt"
	"os"

	"github.com/AlexNa-Holdings/stakezil/cmn"
	"github.com/urfave/cli/v2"
)

const STAKEZIL = `
     _        _                _ _
 ___| |_ __ _| | _____ _______(_) |
/ __| __/ _' | |/ / _ \_  / | | | |
\__ \ || (_| |   <  __// /| | | | |
|___/\__\__,_|_|\_\___/___|_|_|_|_|`

func main() {
	app := &cli.App{
		Name:    cmn.AppName,
		Usage:   "zero-fee bridge companion for the Zilliqa staking dashboard",
		Version: cmn.VERSION,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "data",
				Usage: "data folder (config.yaml, log, rewards)",
			},
			&cli.StringFlag{
				Name:  "verbosity",
				Usage: "log level: trace, debug, info, warn, error",
			},
			&cli.StringFlag{
				Name:  "rpc",
				Usage: "Zilliqa EVM RPC endpoint",
			},
		},
		Before: func(cctx *cli.Context) error {
			if err := cmn.InitConfig(cctx.String("data")); err != nil {
				return err
			}
			if v := cctx.String("verbosity"); v != "" {
				cmn.SetVerbosity(v)
			}
			if rpc := cctx.String("rpc"); rpc != "" {
				cmn.Config.RPCURL = rpc
			}
			return nil
		},
		Commands: []*cli.Command{serveCmd, checkCmd, walletsCmd},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
