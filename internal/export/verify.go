package export

import (
	"archive/tar"
	"encoding/json"
	"io"
	"os"
	"path"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/lexpub/core/errors"
)

// Verify reads the bundle at p, checks every member against the manifest
// and returns the manifest. Members missing from the manifest, manifest
// files missing from the archive and digest or size mismatches are
// reported as validation errors.
func Verify(p string) (*Manifest, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, errors.NewIO("open", p, err)
	}
	defer f.Close()

	xr, err := xz.NewReader(f)
	if err != nil {
		return nil, errors.NewParse("xz", p, err.Error())
	}
	tr := tar.NewReader(xr)

	var m *Manifest
	got := make(map[string]File)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewParse("tar", p, err.Error())
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name := path.Base(hdr.Name)
		if name == ManifestName && m == nil {
			m = new(Manifest)
			if err := json.NewDecoder(tr).Decode(m); err != nil {
				return nil, errors.NewParse("manifest", p, err.Error())
			}
			continue
		}
		sum, n, err := Digest(tr)
		if err != nil {
			return nil, errors.NewIO("read", hdr.Name, err)
		}
		got[name] = File{Name: name, Size: n, BLAKE3: sum}
	}
	if m == nil {
		return nil, errors.NewValidation("manifest", "bundle has no "+ManifestName)
	}

	for _, want := range m.Files {
		have, ok := got[want.Name]
		if !ok {
			return nil, errors.NewValidation(want.Name, "listed in manifest but missing from bundle")
		}
		if have.Size != want.Size || have.BLAKE3 != want.BLAKE3 {
			return nil, errors.NewValidation(want.Name, "digest mismatch")
		}
		delete(got, want.Name)
	}
	for name := range got {
		return nil, errors.NewValidation(name, "not listed in manifest")
	}
	return m, nil
}
