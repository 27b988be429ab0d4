package main

import (
	"gopkg.in/urfave/cli.v1"
)

// Exit codes, spec.md §6's "Process exit codes".
const (
	exitSuccess       = 0
	exitGeneral       = 1
	exitConfiguration = 2
	exitNetwork       = 3
	exitWallet        = 4
	exitTransaction   = 5
)

var configFlag = cli.StringFlag{
	Name:  "config",
	Usage: "path to the node configuration file",
	Value: "config.yaml",
}

var logLevelFlag = cli.StringFlag{
	Name:  "log.level",
	Usage: "log level (debug|info|warning|error|critical)",
	Value: "info",
}

var keyOutFlag = cli.StringFlag{
	Name:  "out",
	Usage: "path to write the generated key file",
	Value: "key.dat",
}

func runFlags() []cli.Flag {
	return []cli.Flag{configFlag, logLevelFlag}
}
