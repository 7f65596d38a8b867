// Package main is the entry point for the beanloop CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/runoshun/beanloop/internal/app"
	"github.com/runoshun/beanloop/internal/cli"
	"github.com/runoshun/beanloop/internal/domain"
)

// version is set at build time using -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	container, err := app.New(cwd)
	if err != nil {
		// Help and version still work outside a git repository.
		if errors.Is(err, domain.ErrNotGitRepository) && canRunWithoutGit(os.Args[1:]) {
			return cli.NewRootCommand(nil, version).Execute()
		}
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() { _ = container.Close() }()

	return cli.NewRootCommand(container, version).Execute()
}

func canRunWithoutGit(args []string) bool {
	if len(args) == 0 {
		return true
	}
	switch args[0] {
	case "help", "version":
		return true
	}
	for _, arg := range args {
		if arg == "--version" || arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}
