// fast-static serves a directory of static files over HTTP/1.1 from a
// single-threaded readiness loop with an in-memory LRU file cache.
//
// Usage:
//
//	fast-static [flags] [port]
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/searchktools/fast-static/app"
	"github.com/searchktools/fast-static/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	logger, closer, err := app.NewLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	if err := a.Run(); err != nil {
		logger.Error("server failed", "error", err)
		return err
	}
	return nil
}
