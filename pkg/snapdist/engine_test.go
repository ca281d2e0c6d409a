package snapdist

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/yndnr/snapdist-go/internal/archive"
	"github.com/yndnr/snapdist-go/pkg/frame"
	"github.com/yndnr/snapdist-go/pkg/snapdist/codec"
	"github.com/yndnr/snapdist-go/pkg/snapdist/manifest"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// saveAndRebuild saves the bag and builds a fresh bag from the archive.
func saveAndRebuild(t *testing.T, bag *Bag, opts ...Option) *Bag {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, bag.Name())
	archivePath := filepath.Join(root, bag.Name()+ArchiveExt)

	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	eng := NewEngine(bag, opts...)
	if err := eng.Save(dir, archivePath); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out := t.TempDir()
	fresh := New(bag.Name())
	eng2 := NewEngine(fresh, opts...)
	if err := eng2.Build(filepath.Join(out, bag.Name()), archivePath, true); err != nil {
		t.Fatalf("Build: %v", err)
	}
	return fresh
}

func TestSimpleRoundTrip(t *testing.T) {
	bag := New("simpsons")
	bag.Set("years", []any{2020.0, 2019.0})
	bag.Set("label", "springfield")
	bag.Set("ratio", 0.5)
	bag.Set("flag", true)

	fresh := saveAndRebuild(t, bag)

	for _, name := range []string{"years", "label", "ratio", "flag"} {
		want, _ := bag.Get(name)
		got, ok := fresh.Get(name)
		if !ok {
			t.Fatalf("attribute %q missing after rebuild", name)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("attribute %q = %#v, want %#v", name, got, want)
		}
	}
}

func TestArrayRoundTrip(t *testing.T) {
	bag := New("simpsons")
	in := []float64{0, 1.5, -2.25, 3.1415926535}
	bag.Set("bart", in)

	fresh := saveAndRebuild(t, bag)

	got, ok := fresh.Get("bart")
	if !ok {
		t.Fatal("bart missing after rebuild")
	}
	out := got.([]float64)
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if math.Abs(out[i]-in[i]) > 1e-9 {
			t.Fatalf("bart[%d] = %v, want %v", i, out[i], in[i])
		}
	}
}

func TestTableRoundTrip(t *testing.T) {
	lisa, err := frame.New([]string{"Pi", "e"})
	if err != nil {
		t.Fatalf("frame.New: %v", err)
	}
	if err := lisa.AppendRow(3.1415, 2.7182); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}

	bag := New("simpsons")
	bag.Set("lisa", lisa)

	fresh := saveAndRebuild(t, bag)

	got, ok := fresh.Get("lisa")
	if !ok {
		t.Fatal("lisa missing after rebuild")
	}
	f := got.(*frame.Frame)
	if !reflect.DeepEqual(f.Columns(), []string{"Pi", "e"}) {
		t.Fatalf("Columns = %v", f.Columns())
	}
	if f.NumRows() != 1 {
		t.Fatalf("NumRows = %d, want 1", f.NumRows())
	}
	pi, _ := f.At(0, "Pi")
	e, _ := f.At(0, "e")
	if math.Abs(pi.(float64)-3.1415) > 1e-9 || math.Abs(e.(float64)-2.7182) > 1e-9 {
		t.Fatalf("cells = %v, %v", pi, e)
	}
}

func TestIdempotentReload(t *testing.T) {
	bag := New("simpsons")
	bag.Set("years", []any{2020.0})
	bag.Set("bart", []float64{1, 2, 3})

	root := t.TempDir()
	dir := filepath.Join(root, "simpsons")
	archivePath := filepath.Join(root, "simpsons.tar.gz")
	if err := NewEngine(bag, WithLogger(quietLogger())).Save(dir, archivePath); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out := t.TempDir()
	fresh := New("simpsons")
	eng := NewEngine(fresh, WithLogger(quietLogger()))
	if err := eng.Build(filepath.Join(out, "simpsons"), archivePath, true); err != nil {
		t.Fatalf("Build: %v", err)
	}

	first := make(map[string]any)
	for _, n := range fresh.Names() {
		v, _ := fresh.Get(n)
		first[n] = v
	}

	if err := eng.Reload(); err != nil {
		t.Fatalf("second Reload: %v", err)
	}
	if len(fresh.Names()) != len(first) {
		t.Fatalf("attribute count changed on second reload: %v", fresh.Names())
	}
	for n, want := range first {
		got, _ := fresh.Get(n)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("attribute %q changed on second reload", n)
		}
	}
}

func TestManifestFreshness(t *testing.T) {
	bag := New("simpsons")
	bag.Set("bart", []float64{1, 2})
	lisa, _ := frame.New([]string{"a"})
	_ = lisa.AppendRow(1.0)
	bag.Set("lisa", lisa)

	root := t.TempDir()
	dir := filepath.Join(root, "simpsons")
	archivePath := filepath.Join(root, "simpsons.tar.gz")
	eng := NewEngine(bag, WithLogger(quietLogger()))
	if err := eng.Save(dir, archivePath); err != nil {
		t.Fatalf("first Save: %v", err)
	}

	bag.Delete("lisa")
	if err := eng.Save(dir, archivePath); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	m, err := manifest.ReadComplex(dir)
	if err != nil {
		t.Fatalf("ReadComplex: %v", err)
	}
	if len(m) != 1 {
		t.Fatalf("complex manifest = %v, want only bart", m)
	}
	if _, ok := m["lisa"]; ok {
		t.Fatal("stale manifest entry for lisa survived the second save")
	}
	if _, err := os.Stat(filepath.Join(dir, "lisa.csv")); !os.IsNotExist(err) {
		t.Fatalf("stale encoded file lisa.csv survived the second save: %v", err)
	}

	// The second archive must not carry the stale file either.
	names, err := archive.List(archivePath, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, n := range names {
		if filepath.Base(n) == "lisa.csv" {
			t.Fatal("stale encoded file lisa.csv present in second archive")
		}
	}
}

type bytesCodec struct{}

func (bytesCodec) Tag() string                     { return "blob" }
func (bytesCodec) Format() string                  { return "raw" }
func (bytesCodec) Ext() string                     { return ".bin" }
func (bytesCodec) Handles(v any) bool              { _, ok := v.([]byte); return ok }
func (bytesCodec) Encode(v any, w io.Writer) error { _, err := w.Write(v.([]byte)); return err }
func (bytesCodec) Decode(r io.Reader) (any, error) { return io.ReadAll(r) }

func TestUnknownTagSkippedOnReload(t *testing.T) {
	// Write with a registry that knows "blob"; restore with one that
	// does not. The blob attribute is skipped, the rest is restored.
	writerReg := codec.Default()
	if err := writerReg.Register(bytesCodec{}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	bag := New("simpsons")
	bag.Set("homer", []byte{0xde, 0xad})
	bag.Set("bart", []float64{1, 2})

	root := t.TempDir()
	dir := filepath.Join(root, "simpsons")
	archivePath := filepath.Join(root, "simpsons.tar.gz")
	if err := NewEngine(bag, WithLogger(quietLogger()), WithRegistry(writerReg)).Save(dir, archivePath); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out := t.TempDir()
	fresh := New("simpsons")
	eng := NewEngine(fresh, WithLogger(quietLogger()))
	if err := eng.Build(filepath.Join(out, "simpsons"), archivePath, true); err != nil {
		t.Fatalf("Build: %v", err)
	}

	if _, ok := fresh.Get("homer"); ok {
		t.Fatal("attribute with unregistered type tag must not be set")
	}
	if _, ok := fresh.Get("bart"); !ok {
		t.Fatal("remaining attributes must still be restored")
	}
}

func TestMissingComplexManifestFailsBuild(t *testing.T) {
	bag := New("simpsons")
	bag.Set("years", []any{2020.0})

	root := t.TempDir()
	dir := filepath.Join(root, "simpsons")
	archivePath := filepath.Join(root, "simpsons.tar.gz")
	if err := NewEngine(bag, WithLogger(quietLogger())).Save(dir, archivePath); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Corrupt the snapshot: drop the complex manifest and repack.
	if err := os.Remove(filepath.Join(dir, manifest.ComplexFile)); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := archive.Pack(dir, archivePath, ""); err != nil {
		t.Fatalf("Pack: %v", err)
	}

	out := t.TempDir()
	eng := NewEngine(New("simpsons"), WithLogger(quietLogger()))
	err := eng.Build(filepath.Join(out, "simpsons"), archivePath, true)
	if !errors.Is(err, manifest.ErrComplexMissing) {
		t.Fatalf("Build error = %v, want ErrComplexMissing", err)
	}
}

func TestReloadBeforeBuild(t *testing.T) {
	eng := NewEngine(New("x"), WithLogger(quietLogger()))
	if err := eng.Reload(); !errors.Is(err, ErrNotBuilt) {
		t.Fatalf("Reload error = %v, want ErrNotBuilt", err)
	}
	if err := eng.ReloadSimple("a"); !errors.Is(err, ErrNotBuilt) {
		t.Fatalf("ReloadSimple error = %v, want ErrNotBuilt", err)
	}
}

func TestReloadLookupMiss(t *testing.T) {
	bag := New("simpsons")
	bag.Set("years", []any{2020.0})

	root := t.TempDir()
	dir := filepath.Join(root, "simpsons")
	archivePath := filepath.Join(root, "simpsons.tar.gz")
	if err := NewEngine(bag, WithLogger(quietLogger())).Save(dir, archivePath); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out := t.TempDir()
	fresh := New("simpsons")
	eng := NewEngine(fresh, WithLogger(quietLogger()))
	if err := eng.Build(filepath.Join(out, "simpsons"), archivePath, false); err != nil {
		t.Fatalf("Build: %v", err)
	}

	if err := eng.ReloadSimple("nope"); err != nil {
		t.Fatalf("ReloadSimple(nope) = %v, want nil (local failure)", err)
	}
	if err := eng.ReloadComplex("nope"); err != nil {
		t.Fatalf("ReloadComplex(nope) = %v, want nil (local failure)", err)
	}
	if fresh.Len() != 0 {
		t.Fatalf("lookup misses must not change state, bag = %v", fresh.Names())
	}
}

func TestSelectiveReload(t *testing.T) {
	bag := New("simpsons")
	bag.Set("years", []any{2020.0})
	bag.Set("bart", []float64{1, 2, 3})

	root := t.TempDir()
	dir := filepath.Join(root, "simpsons")
	archivePath := filepath.Join(root, "simpsons.tar.gz")
	if err := NewEngine(bag, WithLogger(quietLogger())).Save(dir, archivePath); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out := t.TempDir()
	fresh := New("simpsons")
	eng := NewEngine(fresh, WithLogger(quietLogger()))
	if err := eng.Build(filepath.Join(out, "simpsons"), archivePath, false); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if fresh.Len() != 0 {
		t.Fatal("Build with reload=false must not touch the bag")
	}

	if err := eng.ReloadComplex("bart"); err != nil {
		t.Fatalf("ReloadComplex: %v", err)
	}
	if _, ok := fresh.Get("bart"); !ok {
		t.Fatal("bart should be set after selective reload")
	}
	if _, ok := fresh.Get("years"); ok {
		t.Fatal("years should not be set before ReloadSimple")
	}

	if err := eng.ReloadSimple("years"); err != nil {
		t.Fatalf("ReloadSimple: %v", err)
	}
	if _, ok := fresh.Get("years"); !ok {
		t.Fatal("years should be set after ReloadSimple")
	}
}

func TestNullNeverClobbers(t *testing.T) {
	bag := New("simpsons")
	bag.Set("unset", nil)
	bag.Set("kept", "value")

	root := t.TempDir()
	dir := filepath.Join(root, "simpsons")
	archivePath := filepath.Join(root, "simpsons.tar.gz")
	if err := NewEngine(bag, WithLogger(quietLogger())).Save(dir, archivePath); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out := t.TempDir()
	fresh := New("simpsons")
	fresh.Set("unset", "deliberate")
	eng := NewEngine(fresh, WithLogger(quietLogger()))
	if err := eng.Build(filepath.Join(out, "simpsons"), archivePath, true); err != nil {
		t.Fatalf("Build: %v", err)
	}

	got, _ := fresh.Get("unset")
	if got != "deliberate" {
		t.Fatalf("null in manifest clobbered host value: %#v", got)
	}
	if v, _ := fresh.Get("kept"); v != "value" {
		t.Fatalf("kept = %#v", v)
	}
}

func TestUnencodableDowngradedToNull(t *testing.T) {
	bag := New("simpsons")
	bag.Set("bad", make(chan int)) // not JSON-encodable
	bag.Set("good", "fine")

	root := t.TempDir()
	dir := filepath.Join(root, "simpsons")
	archivePath := filepath.Join(root, "simpsons.tar.gz")
	if err := NewEngine(bag, WithLogger(quietLogger())).Save(dir, archivePath); err != nil {
		t.Fatalf("Save should tolerate unencodable attributes: %v", err)
	}

	m, err := manifest.ReadSimple(dir)
	if err != nil {
		t.Fatalf("ReadSimple: %v", err)
	}
	if v, ok := m["bad"]; !ok || v != nil {
		t.Fatalf("bad = %#v, want explicit null", v)
	}
	if m["good"] != "fine" {
		t.Fatalf("good = %#v", m["good"])
	}
}

func TestEncryptedEngineRoundTrip(t *testing.T) {
	bag := New("vault")
	bag.Set("bart", []float64{4, 5, 6})

	root := t.TempDir()
	dir := filepath.Join(root, "vault")
	archivePath := filepath.Join(root, "vault.tar.gz")
	pass := "correct horse"
	if err := NewEngine(bag, WithLogger(quietLogger()), WithEncryptionPassphrase(pass)).Save(dir, archivePath); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Wrong passphrase fails.
	bad := NewEngine(New("vault"), WithLogger(quietLogger()), WithEncryptionPassphrase("battery staple"))
	if err := bad.Build(filepath.Join(t.TempDir(), "vault"), archivePath, true); !errors.Is(err, archive.ErrDecryptionFailed) {
		t.Fatalf("Build error = %v, want ErrDecryptionFailed", err)
	}

	fresh := New("vault")
	eng := NewEngine(fresh, WithLogger(quietLogger()), WithEncryptionPassphrase(pass))
	if err := eng.Build(filepath.Join(t.TempDir(), "vault"), archivePath, true); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := fresh.Get("bart"); !ok {
		t.Fatal("bart missing after encrypted rebuild")
	}
}

func TestDefaultPaths(t *testing.T) {
	origDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(origDir); err != nil {
			t.Fatalf("Chdir back: %v", err)
		}
	})

	bag := New("simpsons")
	bag.Set("years", []any{2020.0})
	if err := NewEngine(bag, WithLogger(quietLogger())).Save("", ""); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat("simpsons.tar.gz"); err != nil {
		t.Fatalf("default archive not created: %v", err)
	}
	if _, err := os.Stat(filepath.Join("simpsons", manifest.SimpleFile)); err != nil {
		t.Fatalf("default directory not created: %v", err)
	}

	fresh := New("simpsons")
	eng := NewEngine(fresh, WithLogger(quietLogger()))
	if err := eng.Build("", "", true); err != nil {
		t.Fatalf("Build with defaults: %v", err)
	}
	if _, ok := fresh.Get("years"); !ok {
		t.Fatal("years missing after default-path rebuild")
	}
}

func TestKinds(t *testing.T) {
	bag := New("simpsons")
	bag.Set("years", []any{2020.0})
	bag.Set("bart", []float64{1})
	lisa, _ := frame.New([]string{"a"})
	bag.Set("lisa", lisa)
	bag.Set("gone", nil)

	eng := NewEngine(bag, WithLogger(quietLogger()))
	kinds := eng.Kinds()

	want := map[string]Classification{
		"years": {Kind: KindSimple},
		"bart":  {Kind: KindComplex, TypeTag: codec.TagArray},
		"lisa":  {Kind: KindComplex, TypeTag: codec.TagTable},
		"gone":  {Kind: KindSimple},
	}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("Kinds = %#v, want %#v", kinds, want)
	}
}

func TestBagOrderAndDelete(t *testing.T) {
	bag := New("")
	if bag.Name() != DefaultName {
		t.Fatalf("Name = %q, want %q", bag.Name(), DefaultName)
	}
	bag.Set("a", 1)
	bag.Set("b", 2)
	bag.Set("a", 3) // keeps position
	if !reflect.DeepEqual(bag.Names(), []string{"a", "b"}) {
		t.Fatalf("Names = %v", bag.Names())
	}
	if v, _ := bag.Get("a"); v != 3 {
		t.Fatalf("a = %v", v)
	}
	bag.Delete("a")
	if !reflect.DeepEqual(bag.Names(), []string{"b"}) {
		t.Fatalf("Names after delete = %v", bag.Names())
	}
	if bag.Len() != 1 {
		t.Fatalf("Len = %d", bag.Len())
	}
}
