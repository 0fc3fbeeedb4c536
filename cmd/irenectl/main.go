// Command irenectl is an operator CLI for validating irenecore
// configuration and donation manifests before deploying them.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/irenevoice/irenecore/internal/config"
	"github.com/irenevoice/irenecore/internal/intent"
	"github.com/irenevoice/irenecore/internal/provider"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return 2
	}

	switch args[0] {
	case "validate-config":
		return validateConfig(args[1:])
	case "validate-donations":
		return validateDonations(args[1:])
	case "help", "-h", "--help":
		usage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "irenectl: unknown subcommand %q\n", args[0])
		usage()
		return 2
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: irenectl <subcommand> [flags]

subcommands:
  validate-config     -config <path>       load and validate a CoreConfig YAML file
  validate-donations  -dir <path>          load and validate every donation manifest in a directory`)
}

func validateConfig(args []string) int {
	fs := flag.NewFlagSet("validate-config", flag.ExitOnError)
	path := fs.String("config", "config.yaml", "path to the YAML configuration file")
	fs.Parse(args)

	cfg, err := config.Load(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid: %v\n", err)
		return 1
	}

	fmt.Printf("valid: %s\n", *path)
	fmt.Printf("deployment profile: %s\n", config.DeploymentProfile(cfg))
	return 0
}

func validateDonations(args []string) int {
	fs := flag.NewFlagSet("validate-donations", flag.ExitOnError)
	dir := fs.String("dir", "", "directory containing donation manifest JSON files")
	fs.Parse(args)

	if *dir == "" {
		fmt.Fprintln(os.Stderr, "irenectl: -dir is required")
		return 2
	}

	donations, err := provider.LoadDonationsDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid: %v\n", err)
		return 1
	}

	if _, err := intent.NewDonationSet(donations); err != nil {
		fmt.Fprintf(os.Stderr, "invalid: %v\n", err)
		return 1
	}

	methodCount := 0
	for _, d := range donations {
		methodCount += len(d.Methods)
	}
	fmt.Printf("valid: %d domain(s), %d method(s) in %s\n", len(donations), methodCount, *dir)
	return 0
}
