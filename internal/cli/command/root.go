package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/snapdist-go/internal/cli/config"
	"github.com/yndnr/snapdist-go/internal/cli/output"
	"github.com/yndnr/snapdist-go/internal/telemetry/logger"
)

// Build information, set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// App creates the CLI application.
func App() *cli.App {
	app := &cli.App{
		Name:    "snapdist",
		Usage:   "Inspect and manage attribute snapshot archives",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildTime),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			InspectCommand(),
			PeekCommand(),
			PackCommand(),
			UnpackCommand(),
			VerifyCommand(),
			CatalogCommand(),
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			c.App.Metadata["config"] = cfg

			log := logger.New(logger.Config{
				Level:  cfg.LogLevel,
				Format: cfg.LogFormat,
			})
			c.App.Metadata["logger"] = log
			return nil
		},
	}
	return app
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Config file path",
			EnvVars: []string{"SNAPDIST_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json",
		},
		&cli.StringFlag{
			Name:    "passphrase",
			Aliases: []string{"p"},
			Usage:   "Passphrase for encrypted archives",
			EnvVars: []string{"SNAPDIST_PASSPHRASE"},
		},
		&cli.StringFlag{
			Name:    "catalog-dir",
			Usage:   "Catalog database directory",
			EnvVars: []string{"SNAPDIST_CATALOG_DIR"},
		},
	}
}

func cliConfig(c *cli.Context) *config.CLIConfig {
	if cfg, ok := c.App.Metadata["config"].(*config.CLIConfig); ok {
		return cfg
	}
	return config.Default()
}

// formatterFor picks the output formatter: flag first, config second.
func formatterFor(c *cli.Context) output.Formatter {
	format := cliConfig(c).Output
	if c.IsSet("output") {
		format = c.String("output")
	}
	return output.NewFormatter(output.Format(format))
}

func passphraseFor(c *cli.Context) string {
	if c.IsSet("passphrase") {
		return c.String("passphrase")
	}
	return cliConfig(c).Passphrase
}

func catalogDirFor(c *cli.Context) string {
	if c.IsSet("catalog-dir") {
		return c.String("catalog-dir")
	}
	return cliConfig(c).CatalogDir
}
