package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/notestore/internal"
	pkgconfig "github.com/starford/notestore/pkg/config"
)

var version = "dev"

func loadOptions(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	found, err := pkgconfig.LoadOptional(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if path := cmd.String("store"); path != "" {
		cfg.Store.Path = path
	}
	if !found {
		slog.Debug("config file not found, using defaults", slog.String("path", configPath))
	}

	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func repair(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.RunRepair(ctx, os.Stdout, append(opts, internal.WithLogOutput(os.Stderr))...)
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, opts...)
}

func importVault(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.Args().First()
	if dir == "" {
		return fmt.Errorf("import: vault directory is required")
	}
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.RunImport(ctx, dir, os.Stdout, append(opts, internal.WithLogOutput(os.Stderr))...)
}

func exportVault(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.Args().First()
	if dir == "" {
		return fmt.Errorf("export: vault directory is required")
	}
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.RunExport(ctx, dir, cmd.Bool("prune"), os.Stdout, append(opts, internal.WithLogOutput(os.Stderr))...)
}

func main() {
	cmd := &cli.Command{
		Name:    "notestore",
		Usage:   "Note store with folders, tags and trash on an embedded document database",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "store",
				Usage:   "Path to the database file (overrides store.path)",
				Sources: cli.EnvVars("NOTESTORE_PATH"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serve,
			},
			{
				Name:   "repair",
				Usage:  "Create missing folders and tags and print the report",
				Action: repair,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: mcp,
			},
			{
				Name:      "import",
				Usage:     "Import a directory of Markdown files",
				ArgsUsage: "<dir>",
				Action:    importVault,
			},
			{
				Name:      "export",
				Usage:     "Export live notes to a directory of Markdown files",
				ArgsUsage: "<dir>",
				Action:    exportVault,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "prune",
						Usage: "Delete Markdown files no exported note maps to",
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
