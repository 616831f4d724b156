package export

import (
	"archive/tar"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/lexpub/core/errors"
)

// ManifestName is the name of the manifest inside a bundle directory.
const ManifestName = "manifest.json"

// Manifest describes the files of a publication bundle.
type Manifest struct {
	BatchID     string    `json:"batchId"`
	Created     time.Time `json:"created"`
	Backend     string    `json:"backend"`
	Publication string    `json:"publication,omitempty"`
	Entries     int       `json:"entries"`
	Files       []File    `json:"files"`
}

// File is one bundled file with its BLAKE3 digest.
type File struct {
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	BLAKE3 string `json:"blake3"`
}

// NewManifest starts a manifest with a fresh batch id.
func NewManifest(backend, publication string) *Manifest {
	return &Manifest{
		BatchID:     uuid.NewString(),
		Created:     time.Now().UTC().Truncate(time.Second),
		Backend:     backend,
		Publication: publication,
	}
}

// Digest returns the hex BLAKE3 digest of r and the number of bytes read.
func Digest(r io.Reader) (string, int64, error) {
	h := blake3.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

func digestFile(p string) (File, error) {
	f, err := os.Open(p)
	if err != nil {
		return File{}, errors.NewIO("open", p, err)
	}
	defer f.Close()
	sum, n, err := Digest(f)
	if err != nil {
		return File{}, errors.NewIO("read", p, err)
	}
	return File{Name: filepath.Base(p), Size: n, BLAKE3: sum}, nil
}

// BaseDir derives the directory name used inside the bundle at dst.
func BaseDir(dst string) string {
	return filepath.Base(strings.TrimSuffix(strings.TrimSuffix(dst, ".tar.xz"), ".bundle"))
}

// Bundle packs files into a .tar.xz at dst. All members live under
// BaseDir(dst); the manifest comes first and lists every file with its
// size and digest. Timestamps are set to m.Created so the same inputs
// produce the same archive.
func Bundle(dst string, m *Manifest, files ...string) error {
	seen := make(map[string]bool, len(files))
	m.Files = m.Files[:0]
	for _, p := range files {
		f, err := digestFile(p)
		if err != nil {
			return err
		}
		if f.Name == ManifestName || seen[f.Name] {
			return errors.NewValidation("files", "duplicate bundle member "+f.Name)
		}
		seen[f.Name] = true
		m.Files = append(m.Files, f)
	}
	manifest, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding manifest")
	}
	base := BaseDir(dst)

	return WriteFile(dst, func(w io.Writer) error {
		xw, err := xz.NewWriter(w)
		if err != nil {
			return errors.Wrap(err, "xz writer")
		}
		tw := tar.NewWriter(xw)

		if err := tw.WriteHeader(&tar.Header{
			Name:     base + "/",
			Typeflag: tar.TypeDir,
			Mode:     0755,
			ModTime:  m.Created,
		}); err != nil {
			return err
		}
		if err := writeMember(tw, path.Join(base, ManifestName), m.Created, int64(len(manifest)), strings.NewReader(string(manifest))); err != nil {
			return err
		}
		for i, p := range files {
			if err := copyMember(tw, path.Join(base, m.Files[i].Name), m.Created, m.Files[i].Size, p); err != nil {
				return err
			}
		}
		if err := tw.Close(); err != nil {
			return errors.Wrap(err, "closing tar stream")
		}
		if err := xw.Close(); err != nil {
			return errors.Wrap(err, "closing xz stream")
		}
		return nil
	})
}

func writeMember(tw *tar.Writer, name string, mod time.Time, size int64, r io.Reader) error {
	if err := tw.WriteHeader(&tar.Header{
		Name:     name,
		Typeflag: tar.TypeReg,
		Mode:     0644,
		Size:     size,
		ModTime:  mod,
	}); err != nil {
		return err
	}
	_, err := io.Copy(tw, r)
	return err
}

func copyMember(tw *tar.Writer, name string, mod time.Time, size int64, p string) error {
	f, err := os.Open(p)
	if err != nil {
		return errors.NewIO("open", p, err)
	}
	defer f.Close()
	// The file may have changed since it was digested; the tar writer
	// rejects a size mismatch.
	return writeMember(tw, name, mod, size, f)
}
