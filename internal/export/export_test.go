package export

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/lexpub/core/errors"
)

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out", "dict.xhtml")

	err := WriteFile(dst, func(w io.Writer) error {
		_, err := io.WriteString(w, "<html/>")
		return err
	})
	if err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "<html/>" {
		t.Errorf("content = %q", data)
	}
}

func TestWriteFile_FailureKeepsOldContent(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "dict.json")
	if err := os.WriteFile(dst, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	boom := fmt.Errorf("render failed")
	err := WriteFile(dst, func(w io.Writer) error {
		io.WriteString(w, "partial")
		return boom
	})
	if err != boom {
		t.Fatalf("err = %v, want %v", err, boom)
	}

	data, _ := os.ReadFile(dst)
	if string(data) != "old" {
		t.Errorf("content = %q, want old", data)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("temp files left behind: %v", names)
	}
}

func TestDigest(t *testing.T) {
	a, n, err := Digest(strings.NewReader("abc"))
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("n = %d, want 3", n)
	}
	if len(a) != 64 {
		t.Errorf("digest length = %d, want 64", len(a))
	}
	b, _, _ := Digest(strings.NewReader("abd"))
	if a == b {
		t.Error("different inputs produced the same digest")
	}
}

func TestBaseDir(t *testing.T) {
	tests := []struct {
		dst  string
		want string
	}{
		{"/tmp/dict.tar.xz", "dict"},
		{"out/seh.bundle.tar.xz", "seh"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := BaseDir(tt.dst); got != tt.want {
			t.Errorf("BaseDir(%q) = %q, want %q", tt.dst, got, tt.want)
		}
	}
}

func writeInputs(t *testing.T, dir string, files map[string]string) []string {
	t.Helper()
	var paths []string
	for _, name := range []string{"dict.xhtml", "dict.css"} {
		content, ok := files[name]
		if !ok {
			continue
		}
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	return paths
}

func TestBundleAndVerify(t *testing.T) {
	dir := t.TempDir()
	inputs := writeInputs(t, dir, map[string]string{
		"dict.xhtml": "<html><body/></html>",
		"dict.css":   ".entry { }",
	})
	dst := filepath.Join(dir, "seh.tar.xz")

	m := NewManifest("xhtml", "Main Dictionary")
	m.Entries = 2
	if err := Bundle(dst, m, inputs...); err != nil {
		t.Fatalf("Bundle failed: %v", err)
	}
	if len(m.BatchID) != 36 {
		t.Errorf("BatchID = %q, want a UUID", m.BatchID)
	}

	names := readTarXzNames(t, dst)
	want := []string{"seh/", "seh/manifest.json", "seh/dict.xhtml", "seh/dict.css"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("members = %v, want %v", names, want)
	}

	got, err := Verify(dst)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if got.BatchID != m.BatchID || got.Backend != "xhtml" || got.Entries != 2 {
		t.Errorf("manifest = %+v", got)
	}
	if len(got.Files) != 2 || got.Files[0].Name != "dict.xhtml" || got.Files[0].Size != 20 {
		t.Errorf("files = %+v", got.Files)
	}
}

func TestBundle_Deterministic(t *testing.T) {
	dir := t.TempDir()
	inputs := writeInputs(t, dir, map[string]string{"dict.xhtml": "<html/>"})

	m := NewManifest("xhtml", "")
	a := filepath.Join(dir, "a", "out.tar.xz")
	b := filepath.Join(dir, "b", "out.tar.xz")
	if err := Bundle(a, m, inputs...); err != nil {
		t.Fatal(err)
	}
	if err := Bundle(b, m, inputs...); err != nil {
		t.Fatal(err)
	}
	da, _ := os.ReadFile(a)
	db, _ := os.ReadFile(b)
	if !bytes.Equal(da, db) {
		t.Error("bundles of identical inputs differ")
	}
}

func TestBundle_DuplicateNames(t *testing.T) {
	dir := t.TempDir()
	inputs := writeInputs(t, dir, map[string]string{"dict.xhtml": "x"})
	err := Bundle(filepath.Join(dir, "out.tar.xz"), NewManifest("xhtml", ""), inputs[0], inputs[0])
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("err = %v, want invalid input", err)
	}
}

func TestBundle_MissingInput(t *testing.T) {
	dir := t.TempDir()
	err := Bundle(filepath.Join(dir, "out.tar.xz"), NewManifest("odt", ""), filepath.Join(dir, "nope.odt"))
	var ioErr *errors.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("err = %v, want IOError", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "out.tar.xz")); !os.IsNotExist(statErr) {
		t.Error("bundle written despite missing input")
	}
}

func TestVerify_Tampered(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "bad.tar.xz")

	writeTarXz(t, dst, map[string]string{
		"bad/manifest.json": `{"batchId":"x","backend":"json","files":[{"name":"dict.json","size":2,"blake3":"00"}]}`,
		"bad/dict.json":     "[]",
	})
	if _, err := Verify(dst); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("tampered digest: err = %v, want invalid input", err)
	}

	writeTarXz(t, dst, map[string]string{"bad/dict.json": "[]"})
	if _, err := Verify(dst); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("no manifest: err = %v, want invalid input", err)
	}
}

func TestVerify_NotXz(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "plain.tar.xz")
	if err := os.WriteFile(dst, []byte("not compressed"), 0644); err != nil {
		t.Fatal(err)
	}
	var parseErr *errors.ParseError
	if _, err := Verify(dst); !errors.As(err, &parseErr) {
		t.Errorf("err = %v, want ParseError", err)
	}
}

func readTarXzNames(t *testing.T, p string) []string {
	t.Helper()
	f, err := os.Open(p)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	xr, err := xz.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	tr := tar.NewReader(xr)
	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		names = append(names, hdr.Name)
	}
	return names
}

func writeTarXz(t *testing.T, p string, members map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	tw := tar.NewWriter(xw)
	for name, content := range members {
		if err := tw.WriteHeader(&tar.Header{Name: name, Mode: 0644, Size: int64(len(content)), Typeflag: tar.TypeReg}); err != nil {
			t.Fatal(err)
		}
		io.WriteString(tw, content)
	}
	tw.Close()
	xw.Close()
	if err := os.WriteFile(p, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}
