package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafePath is returned when an archive entry would escape the
// extraction root.
var ErrUnsafePath = errors.New("archive: entry path escapes extraction root")

// Pack creates a gzip-compressed tar archive of srcDir at archivePath.
// The archive's single top-level entry is srcDir's base name. The file
// is staged as a .tmp sibling and renamed into place, so a crash never
// leaves a truncated archive at the final path. With a non-empty
// passphrase the archive bytes are sealed in an encryption envelope.
func Pack(srcDir, archivePath, passphrase string) error {
	data, err := buildTarGz(srcDir)
	if err != nil {
		return err
	}
	if passphrase != "" {
		data, err = seal(data, passphrase)
		if err != nil {
			return err
		}
	}

	tmpPath := archivePath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("archive: create temp file: %w", err)
	}
	defer os.Remove(tmpPath)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("archive: write: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("archive: sync: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("archive: close: %w", err)
	}
	if err := os.Rename(tmpPath, archivePath); err != nil {
		return fmt.Errorf("archive: rename: %w", err)
	}
	return nil
}

func buildTarGz(srcDir string) ([]byte, error) {
	base := filepath.Base(filepath.Clean(srcDir))

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)

	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		name := base
		if rel != "." {
			name = filepath.ToSlash(filepath.Join(base, rel))
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = name
		if d.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("archive: write header %s: %w", name, err)
		}
		if d.IsDir() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := io.Copy(tw, f); err != nil {
			return fmt.Errorf("archive: copy %s: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("archive: pack %s: %w", srcDir, err)
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("archive: close tar: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("archive: close gzip: %w", err)
	}
	return buf.Bytes(), nil
}

// Unpack extracts archivePath into destRoot, reproducing the packed
// directory's original relative layout. destRoot "" means the current
// directory.
func Unpack(archivePath, destRoot, passphrase string) error {
	if destRoot == "" {
		destRoot = "."
	}
	tr, closeFn, err := OpenTar(archivePath, passphrase)
	if err != nil {
		return err
	}
	defer closeFn()

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("archive: read entry: %w", err)
		}
		target, err := safeJoin(destRoot, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0750); err != nil {
				return fmt.Errorf("archive: mkdir %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
				return fmt.Errorf("archive: mkdir %s: %w", filepath.Dir(target), err)
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(hdr.Mode)&0777)
			if err != nil {
				return fmt.Errorf("archive: create %s: %w", target, err)
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return fmt.Errorf("archive: extract %s: %w", target, err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("archive: close %s: %w", target, err)
			}
		default:
			// Snapshots contain only directories and regular files.
		}
	}
	return nil
}

// List returns the entry names in the archive, in archive order.
func List(archivePath, passphrase string) ([]string, error) {
	tr, closeFn, err := OpenTar(archivePath, passphrase)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("archive: read entry: %w", err)
		}
		names = append(names, hdr.Name)
	}
	return names, nil
}

// IsEncrypted reports whether the archive at path carries the
// encryption envelope.
func IsEncrypted(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("archive: open %s: %w", path, err)
	}
	defer f.Close()
	magic := make([]byte, len(encMagic))
	if _, err := io.ReadFull(f, magic); err != nil {
		return false, nil
	}
	return isEncrypted(magic), nil
}

// OpenTar opens an archive for reading, transparently unwrapping the
// encryption envelope. The returned close function must be called when
// done.
func OpenTar(archivePath, passphrase string) (*tar.Reader, func() error, error) {
	data, err := os.ReadFile(archivePath)
	if err != nil {
		return nil, nil, fmt.Errorf("archive: open %s: %w", archivePath, err)
	}
	if isEncrypted(data) {
		data, err = open(data, passphrase)
		if err != nil {
			return nil, nil, err
		}
	}
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("archive: gzip open %s: %w", archivePath, err)
	}
	return tar.NewReader(gr), gr.Close, nil
}

func safeJoin(root, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return filepath.Join(root, cleaned), nil
}
