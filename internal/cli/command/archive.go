package command

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/snapdist-go/internal/archive"
	"github.com/yndnr/snapdist-go/internal/cli/output"
	"github.com/yndnr/snapdist-go/internal/extract"
	"github.com/yndnr/snapdist-go/pkg/snapdist/codec"
)

// PackCommand returns the pack command.
func PackCommand() *cli.Command {
	return &cli.Command{
		Name:      "pack",
		Usage:     "Archive a snapshot staging directory into a tar.gz",
		ArgsUsage: "DIR [ARCHIVE]",
		Action:    packRun,
	}
}

func packRun(c *cli.Context) error {
	if c.NArg() < 1 || c.NArg() > 2 {
		return fmt.Errorf("usage: pack DIR [ARCHIVE]")
	}
	dir := filepath.Clean(c.Args().Get(0))
	archivePath := c.Args().Get(1)
	if archivePath == "" {
		archivePath = dir + ".tar.gz"
	}
	if err := archive.Pack(dir, archivePath, passphraseFor(c)); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, archivePath)
	return nil
}

// UnpackCommand returns the unpack command.
func UnpackCommand() *cli.Command {
	return &cli.Command{
		Name:      "unpack",
		Usage:     "Extract a snapshot archive into a directory",
		ArgsUsage: "ARCHIVE [DEST]",
		Action:    unpackRun,
	}
}

func unpackRun(c *cli.Context) error {
	if c.NArg() < 1 || c.NArg() > 2 {
		return fmt.Errorf("usage: unpack ARCHIVE [DEST]")
	}
	archivePath := c.Args().Get(0)
	dest := c.Args().Get(1)
	if dest == "" {
		dest = "."
	}
	return archive.Unpack(archivePath, dest, passphraseFor(c))
}

// VerifyCommand returns the verify command.
func VerifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Check manifest checksums against the encoded files in an archive",
		ArgsUsage: "ARCHIVE",
		Action:    verifyRun,
	}
}

// ErrVerifyFailed is returned when any component fails verification.
var ErrVerifyFailed = errors.New("command: archive verification failed")

type verifyRow struct {
	Name     string `json:"name"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

func verifyRun(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: verify ARCHIVE")
	}
	archivePath := c.Args().First()
	passphrase := passphraseFor(c)

	_, complexMan, err := extract.Manifests(archivePath, passphrase)
	if err != nil {
		return err
	}

	// Checksum every data file present in the archive.
	sums := make(map[string]string)
	tr, closeTar, err := archive.OpenTar(archivePath, passphrase)
	if err != nil {
		return err
	}
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			closeTar()
			return fmt.Errorf("command: read archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			closeTar()
			return fmt.Errorf("command: read %s: %w", hdr.Name, err)
		}
		sums[filepath.Base(hdr.Name)] = codec.Checksum(data)
	}
	if err := closeTar(); err != nil {
		return err
	}

	var rows []verifyRow
	failed := 0
	for _, name := range complexMan.Names() {
		entry := complexMan[name]
		status := "ok"
		switch sum, ok := sums[entry.Filename]; {
		case !ok:
			status = "missing"
		case entry.Checksum != "" && sum != entry.Checksum:
			status = "checksum mismatch"
		}
		if status != "ok" {
			failed++
		}
		rows = append(rows, verifyRow{Name: name, Filename: entry.Filename, Status: status})
	}

	formatter := formatterFor(c)
	if _, ok := formatter.(*output.JSONFormatter); ok {
		if err := formatter.Format(c.App.Writer, rows); err != nil {
			return err
		}
	} else {
		tbl := output.NewTable("NAME", "FILE", "STATUS")
		for _, r := range rows {
			tbl.AddRow(r.Name, r.Filename, r.Status)
		}
		if err := formatter.Format(c.App.Writer, tbl); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d components", ErrVerifyFailed, failed, len(rows))
	}
	fmt.Fprintf(c.App.Writer, "%d components ok\n", len(rows))
	return nil
}
