package command

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/snapdist-go/internal/catalog"
	"github.com/yndnr/snapdist-go/internal/cli/output"
)

// CatalogCommand returns the catalog subcommand group.
func CatalogCommand() *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Manage the local registry of snapshot archives",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List registered archives",
				Action: catalogList,
			},
			{
				Name:      "add",
				Usage:     "Register an archive",
				ArgsUsage: "ARCHIVE",
				Action:    catalogAdd,
			},
			{
				Name:      "rm",
				Usage:     "Unregister an archive (the file is left alone)",
				ArgsUsage: "ID",
				Action:    catalogRemove,
			},
			{
				Name:      "watch",
				Usage:     "Watch a directory and register archives as they appear",
				ArgsUsage: "DIR",
				Action:    catalogWatch,
			},
		},
	}
}

func loggerFor(c *cli.Context) *slog.Logger {
	if log, ok := c.App.Metadata["logger"].(*slog.Logger); ok {
		return log
	}
	return slog.Default()
}

func openCatalog(c *cli.Context) (*catalog.Catalog, error) {
	return catalog.Open(catalogDirFor(c), catalog.WithLogger(loggerFor(c)))
}

func catalogList(c *cli.Context) error {
	cat, err := openCatalog(c)
	if err != nil {
		return err
	}
	defer cat.Close()

	infos, err := cat.List()
	if err != nil {
		return err
	}

	formatter := formatterFor(c)
	if _, ok := formatter.(*output.JSONFormatter); ok {
		return formatter.Format(c.App.Writer, infos)
	}
	tbl := output.NewTable("ID", "NAME", "SIZE", "CREATED", "PATH")
	for _, info := range infos {
		tbl.AddRow(
			info.ID,
			info.Name,
			fmt.Sprintf("%d", info.Size),
			time.UnixMilli(info.CreatedAt).UTC().Format(time.RFC3339),
			info.Path,
		)
	}
	return formatter.Format(c.App.Writer, tbl)
}

func catalogAdd(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: catalog add ARCHIVE")
	}
	cat, err := openCatalog(c)
	if err != nil {
		return err
	}
	defer cat.Close()

	info, err := cat.Add(c.Args().First())
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, info.ID)
	return nil
}

func catalogRemove(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: catalog rm ID")
	}
	cat, err := openCatalog(c)
	if err != nil {
		return err
	}
	defer cat.Close()
	return cat.Remove(c.Args().First())
}

func catalogWatch(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: catalog watch DIR")
	}
	cat, err := openCatalog(c)
	if err != nil {
		return err
	}
	defer cat.Close()

	w, err := catalog.NewWatcher(cat, c.Args().First(), loggerFor(c))
	if err != nil {
		return err
	}
	defer w.Stop()
	w.StartAsync()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	return nil
}
