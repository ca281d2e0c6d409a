package snapdist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/yndnr/snapdist-go/internal/archive"
	"github.com/yndnr/snapdist-go/internal/telemetry/metric"
	"github.com/yndnr/snapdist-go/pkg/snapdist/codec"
	"github.com/yndnr/snapdist-go/pkg/snapdist/manifest"
)

// ArchiveExt is the default archive filename extension.
const ArchiveExt = ".tar.gz"

// Engine orchestrates save, build and reload for one bag. It owns the
// codec registry and the transient manifest state of the current
// build; manifests are never stored as attributes of the bag itself.
type Engine struct {
	bag        *Bag
	reg        *codec.Registry
	log        *slog.Logger
	metrics    *metric.Metrics
	passphrase string

	// build holds the manifests loaded by the most recent Build call.
	// Replaced wholesale on every Build; nil until the first one.
	build *buildContext
}

type buildContext struct {
	dir     string
	simple  manifest.Simple
	complex manifest.Complex
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithRegistry replaces the default codec registry.
func WithRegistry(reg *codec.Registry) Option {
	return func(e *Engine) { e.reg = reg }
}

// WithMetrics attaches a metrics set.
func WithMetrics(m *metric.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithEncryptionPassphrase enables the authenticated encryption
// envelope around saved archives, and decryption on build.
func WithEncryptionPassphrase(passphrase string) Option {
	return func(e *Engine) { e.passphrase = passphrase }
}

// NewEngine creates an engine for the given bag.
func NewEngine(bag *Bag, opts ...Option) *Engine {
	e := &Engine{
		bag: bag,
		reg: codec.Default(),
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the engine's codec registry, for extension.
func (e *Engine) Registry() *codec.Registry { return e.reg }

// Kinds returns the current classification of every attribute.
func (e *Engine) Kinds() map[string]Classification {
	out := make(map[string]Classification, e.bag.Len())
	for _, name := range e.bag.Names() {
		v, _ := e.bag.Get(name)
		out[name] = Classify(e.reg, v)
	}
	return out
}

// defaults resolves the directory and archive path from the bag name.
func (e *Engine) defaults(dir, archivePath string) (string, string) {
	if dir == "" {
		dir = e.bag.Name()
	}
	if archivePath == "" {
		archivePath = dir + ArchiveExt
	}
	return dir, archivePath
}

// Save snapshots the bag's attribute state into dir and packs it into
// a tar.gz archive at archivePath. Empty arguments default to
// "<name>/" and "<name>.tar.gz". Manifest working state is computed
// fresh on every call; nothing from a previous save survives. The
// staging directory is not written atomically; a failure partway can
// leave a partially populated directory.
func (e *Engine) Save(dir, archivePath string) error {
	dir, archivePath = e.defaults(dir, archivePath)

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("snapdist: create directory %s: %w", dir, err)
	}

	complexMan := manifest.Complex{}
	simpleDoc := manifest.Simple{}

	for _, name := range e.bag.Names() {
		v, _ := e.bag.Get(name)
		cl := Classify(e.reg, v)

		if cl.Kind == KindComplex {
			c, _ := e.reg.Lookup(cl.TypeTag)
			entry, err := e.encodeComplex(dir, name, v, c)
			if err != nil {
				return err
			}
			complexMan[name] = entry
			// Complex values appear as null in the simple manifest;
			// the reload path skips nulls and the codec path restores
			// the real value.
			simpleDoc[name] = nil
			continue
		}

		simpleDoc[name] = e.encodeSimple(name, v)
	}

	if err := manifest.WriteComplex(dir, complexMan); err != nil {
		return err
	}
	if err := manifest.WriteSimple(dir, simpleDoc); err != nil {
		return err
	}

	if err := e.pruneStale(dir, complexMan); err != nil {
		return err
	}

	if err := archive.Pack(dir, archivePath, e.passphrase); err != nil {
		return err
	}

	if e.metrics != nil {
		e.metrics.SavesTotal.Inc()
	}
	e.log.Info("snapshot saved",
		"name", e.bag.Name(),
		"dir", dir,
		"archive", archivePath,
		"attributes", e.bag.Len(),
		"complex", len(complexMan))
	return nil
}

func (e *Engine) encodeComplex(dir, name string, v any, c codec.Codec) (manifest.Entry, error) {
	filename := name + c.Ext()
	path := filepath.Join(dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return manifest.Entry{}, fmt.Errorf("snapdist: create %s: %w", path, err)
	}
	if err := c.Encode(v, f); err != nil {
		f.Close()
		return manifest.Entry{}, fmt.Errorf("snapdist: encode attribute %q: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return manifest.Entry{}, fmt.Errorf("snapdist: close %s: %w", path, err)
	}

	sum, err := codec.ChecksumFile(path)
	if err != nil {
		return manifest.Entry{}, fmt.Errorf("snapdist: checksum attribute %q: %w", name, err)
	}

	if e.metrics != nil {
		e.metrics.AttributesEncoded.WithLabelValues(c.Tag()).Inc()
	}
	e.log.Debug("encoded complex attribute",
		"attribute", name,
		"type_tag", c.Tag(),
		"file", filename)

	return manifest.Entry{
		Filename:  filename,
		TypeTag:   c.Tag(),
		FormatTag: c.Format(),
		Checksum:  sum,
	}, nil
}

// pruneStale removes encoded files left in a reused staging directory
// by a previous save whose attributes are no longer present. The
// manifest is fully replaced on every save; the directory must match.
func (e *Engine) pruneStale(dir string, m manifest.Complex) error {
	keep := map[string]struct{}{
		manifest.SimpleFile:  {},
		manifest.ComplexFile: {},
	}
	for _, entry := range m {
		keep[entry.Filename] = struct{}{}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("snapdist: scan directory %s: %w", dir, err)
	}
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		if _, ok := keep[name]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("snapdist: remove stale file %s: %w", name, err)
		}
		e.log.Debug("removed stale encoded file", "file", name)
	}
	return nil
}

// encodeSimple returns the simple-manifest value for an attribute:
// the value itself when it JSON-encodes, null otherwise. The downgrade
// is lossy and accepted, but always logged.
func (e *Engine) encodeSimple(name string, v any) any {
	if v == nil {
		return nil
	}
	if _, err := json.Marshal(v); err != nil {
		e.log.Warn("attribute is not JSON-encodable, storing null",
			"attribute", name,
			"error", err)
		if e.metrics != nil {
			e.metrics.EncodeDowngrades.Inc()
		}
		return nil
	}
	return v
}

// Build unpacks the archive and loads both manifest documents,
// replacing any previously loaded build state. A missing manifest is a
// structural failure and aborts the build. With reload true the full
// attribute state is applied immediately; with reload false the caller
// can restore attributes selectively via the Reload* methods.
func (e *Engine) Build(dir, archivePath string, reload bool) error {
	dir, archivePath = e.defaults(dir, archivePath)

	if err := archive.Unpack(archivePath, filepath.Dir(dir), e.passphrase); err != nil {
		return err
	}

	complexMan, err := manifest.ReadComplex(dir)
	if err != nil {
		return err
	}
	simpleDoc, err := manifest.ReadSimple(dir)
	if err != nil {
		return err
	}

	e.build = &buildContext{
		dir:     dir,
		simple:  simpleDoc,
		complex: complexMan,
	}

	if e.metrics != nil {
		e.metrics.BuildsTotal.Inc()
	}
	e.log.Info("snapshot built",
		"name", e.bag.Name(),
		"dir", dir,
		"archive", archivePath,
		"simple", len(simpleDoc),
		"complex", len(complexMan))

	if reload {
		return e.Reload()
	}
	return nil
}

// Reload applies every attribute from the loaded manifests onto the
// bag: simple attributes first, then complex ones. Reloading twice
// yields the same final state as reloading once.
func (e *Engine) Reload() error {
	if e.build == nil {
		return ErrNotBuilt
	}
	if err := e.ReloadSimpleAll(); err != nil {
		return err
	}
	if err := e.ReloadComplexAll(); err != nil {
		return err
	}
	if e.metrics != nil {
		e.metrics.ReloadsTotal.Inc()
	}
	return nil
}

// ReloadSimpleAll applies every entry from the loaded simple manifest,
// skipping reserved manifest-state keys and null values. A null is
// never written onto the bag, so fields the host deliberately left
// unset are not clobbered.
func (e *Engine) ReloadSimpleAll() error {
	if e.build == nil {
		return ErrNotBuilt
	}
	for _, name := range e.build.simple.Names() {
		e.applySimple(name, e.build.simple[name])
	}
	return nil
}

// ReloadComplexAll applies every entry from the loaded complex
// manifest. An unrecognized type tag skips that attribute with a
// warning and continues; it never aborts the rest of the restore.
func (e *Engine) ReloadComplexAll() error {
	if e.build == nil {
		return ErrNotBuilt
	}
	for _, name := range e.build.complex.Names() {
		if err := e.applyComplex(name, e.build.complex[name]); err != nil {
			return err
		}
	}
	return nil
}

// ReloadSimple applies exactly one named attribute from the loaded
// simple manifest. A name absent from the manifest is a local failure:
// a warning, no state change, nil error.
func (e *Engine) ReloadSimple(name string) error {
	if e.build == nil {
		return ErrNotBuilt
	}
	v, ok := e.build.simple[name]
	if !ok {
		e.log.Warn("could not reload simple attribute, not in manifest", "attribute", name)
		if e.metrics != nil {
			e.metrics.LookupMisses.Inc()
		}
		return nil
	}
	e.applySimple(name, v)
	return nil
}

// ReloadComplex applies exactly one named attribute from the loaded
// complex manifest. A name absent from the manifest is a local
// failure: a warning, no state change, nil error.
func (e *Engine) ReloadComplex(name string) error {
	if e.build == nil {
		return ErrNotBuilt
	}
	entry, ok := e.build.complex[name]
	if !ok {
		e.log.Warn("could not reload complex attribute, not in manifest", "attribute", name)
		if e.metrics != nil {
			e.metrics.LookupMisses.Inc()
		}
		return nil
	}
	return e.applyComplex(name, entry)
}

func (e *Engine) applySimple(name string, v any) {
	if manifest.Reserved(name) {
		return
	}
	if v == nil {
		e.log.Debug("skipping null simple attribute", "attribute", name)
		return
	}
	e.bag.Set(name, v)
	e.log.Debug("reloaded simple attribute", "attribute", name)
}

func (e *Engine) applyComplex(name string, entry manifest.Entry) error {
	c, ok := e.reg.Lookup(entry.TypeTag)
	if !ok {
		e.log.Warn("could not reload complex attribute, unrecognized type tag",
			"attribute", name,
			"type_tag", entry.TypeTag,
			"file", entry.Filename)
		if e.metrics != nil {
			e.metrics.DispatchMisses.Inc()
		}
		return nil
	}

	path := filepath.Join(e.build.dir, entry.Filename)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("snapdist: read attribute %q from %s: %w", name, path, err)
	}

	if entry.Checksum != "" {
		if sum := codec.Checksum(data); sum != entry.Checksum {
			e.log.Warn("checksum mismatch on encoded attribute file",
				"attribute", name,
				"file", entry.Filename,
				"want", entry.Checksum,
				"got", sum)
			if e.metrics != nil {
				e.metrics.ChecksumMismatches.Inc()
			}
		}
	}

	v, err := c.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("snapdist: decode attribute %q: %w", name, err)
	}
	e.bag.Set(name, v)

	if e.metrics != nil {
		e.metrics.AttributesDecoded.WithLabelValues(entry.TypeTag).Inc()
	}
	e.log.Debug("reloaded complex attribute",
		"attribute", name,
		"type_tag", entry.TypeTag,
		"format_tag", entry.FormatTag,
		"file", entry.Filename)
	return nil
}
