// Command tinynode runs a single Layer-1 proof-of-stake node: it wires
// storage, mempool, consensus, networking and the orchestrator together
// (spec.md §4.8), optionally serves the JSON-RPC surface of spec.md §6,
// and exits with one of spec.md §6's process exit codes.
package main

import (
	"fmt"
	"os"

	"gopkg.in/urfave/cli.v1"
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "tinynode"
	app.Usage = "a minimal proof-of-stake blockchain node"
	app.Version = "0.1.0"
	app.Writer = os.Stdout
	app.Flags = runFlags()
	app.Action = runAction
	app.Commands = []cli.Command{
		{
			Name:   "genkey",
			Usage:  "generate a validator/wallet key file",
			Flags:  []cli.Flag{keyOutFlag},
			Action: genkeyAction,
		},
		{
			Name:      "inspect-genesis",
			Usage:     "parse and summarize a genesis document",
			ArgsUsage: "<path>",
			Action:    inspectGenesisAction,
		},
		{
			Name:   "inspect-config",
			Usage:  "load and print the resolved node configuration",
			Action: inspectConfigAction,
		},
	}
	return app
}

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "tinynode:", err)
		os.Exit(exitCode(err))
	}
}
