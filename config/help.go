package config

import (
	"flag"
	"fmt"
)

const HelpMessage = `
Gothenburg Taxi real-time dispatch service.

Usage:
  dispatch [flags]

Flags:
  -config-path   path to a YAML file with environment overrides
  -help          print this message and exit

Configuration is read from the environment (optionally seeded from the
YAML file). See config.Config for the variable names and defaults.
`

func PrintHelp() {
	if HelpMessage != "" {
		fmt.Printf("%s", HelpMessage)
	} else {
		flag.Usage()
	}
}
