package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/panbanda/plint/internal/cache"
	"github.com/urfave/cli/v2"
)

func cacheCmd() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage the result cache",
		Subcommands: []*cli.Command{
			{
				Name:   "prune",
				Usage:  "Remove expired and unreadable entries",
				Action: runCachePrune,
			},
			{
				Name:   "clear",
				Usage:  "Remove every cached result",
				Action: runCacheClear,
			},
		},
	}
}

func openCache(c *cli.Context) (*cache.Cache, string, error) {
	loaded, err := loadConfig(c)
	if err != nil {
		return nil, "", err
	}
	dir := loaded.Config.Cache.Dir
	cch, err := cache.New(dir, loaded.Config.Cache.TTL, true)
	if err != nil {
		return nil, "", err
	}
	return cch, dir, nil
}

func runCachePrune(c *cli.Context) error {
	cch, dir, err := openCache(c)
	if err != nil {
		return err
	}
	n, err := cch.Prune()
	if err != nil {
		return fmt.Errorf("failed to prune cache %s: %w", dir, err)
	}
	color.New(color.FgGreen).Fprintf(c.App.Writer, "Pruned %d entr%s from %s\n", n, plural(n, "y", "ies"), dir)
	return nil
}

func runCacheClear(c *cli.Context) error {
	cch, dir, err := openCache(c)
	if err != nil {
		return err
	}
	if err := cch.Clear(); err != nil {
		return fmt.Errorf("failed to clear cache %s: %w", dir, err)
	}
	color.New(color.FgGreen).Fprintf(c.App.Writer, "Cleared %s\n", dir)
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
