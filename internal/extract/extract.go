package extract

import (
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/yndnr/snapdist-go/internal/archive"
	"github.com/yndnr/snapdist-go/pkg/snapdist/codec"
	"github.com/yndnr/snapdist-go/pkg/snapdist/manifest"
)

// ErrComponentNotFound is returned when the archive holds no entry
// with the requested filename.
var ErrComponentNotFound = errors.New("extract: component not found in archive")

// Manifests reads both manifest documents from an archive without
// extracting it. Missing manifests are structural failures, exactly as
// at build time.
func Manifests(archivePath, passphrase string) (manifest.Simple, manifest.Complex, error) {
	var simpleData, complexData []byte

	err := walk(archivePath, passphrase, func(name string, r io.Reader) (bool, error) {
		var err error
		switch path.Base(name) {
		case manifest.SimpleFile:
			simpleData, err = io.ReadAll(r)
		case manifest.ComplexFile:
			complexData, err = io.ReadAll(r)
		}
		done := simpleData != nil && complexData != nil
		return done, err
	})
	if err != nil {
		return nil, nil, err
	}

	if complexData == nil {
		return nil, nil, fmt.Errorf("%w: %s", manifest.ErrComplexMissing, archivePath)
	}
	if simpleData == nil {
		return nil, nil, fmt.Errorf("%w: %s", manifest.ErrSimpleMissing, archivePath)
	}

	simple, err := manifest.DecodeSimple(simpleData)
	if err != nil {
		return nil, nil, err
	}
	complexMan, err := manifest.DecodeComplex(complexData)
	if err != nil {
		return nil, nil, err
	}
	return simple, complexMan, nil
}

// Component decodes one encoded complex-attribute file from the
// archive using the codec for the given type tag.
func Component(archivePath, passphrase, filename, typeTag string, reg *codec.Registry) (any, error) {
	if reg == nil {
		reg = codec.Default()
	}
	c, ok := reg.Lookup(typeTag)
	if !ok {
		return nil, fmt.Errorf("%w: %q", codec.ErrUnknownTag, typeTag)
	}

	var value any
	found := false
	err := walk(archivePath, passphrase, func(name string, r io.Reader) (bool, error) {
		if path.Base(name) != filename {
			return false, nil
		}
		v, err := c.Decode(r)
		if err != nil {
			return true, fmt.Errorf("extract: decode %s: %w", filename, err)
		}
		value = v
		found = true
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrComponentNotFound, filename)
	}
	return value, nil
}

// Attribute resolves a named complex attribute through the archive's
// own complex manifest, then decodes its component.
func Attribute(archivePath, passphrase, name string, reg *codec.Registry) (any, error) {
	_, complexMan, err := Manifests(archivePath, passphrase)
	if err != nil {
		return nil, err
	}
	entry, ok := complexMan[name]
	if !ok {
		return nil, fmt.Errorf("%w: attribute %q", ErrComponentNotFound, name)
	}
	return Component(archivePath, passphrase, entry.Filename, entry.TypeTag, reg)
}

// walk iterates regular entries in the archive. The callback returns
// done=true to stop early.
func walk(archivePath, passphrase string, fn func(name string, r io.Reader) (bool, error)) error {
	tr, closeFn, err := archive.OpenTar(archivePath, passphrase)
	if err != nil {
		return err
	}
	defer closeFn()

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("extract: read entry: %w", err)
		}
		done, err := fn(hdr.Name, tr)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}
