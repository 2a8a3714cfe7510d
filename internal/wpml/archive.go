package wpml

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
)

const (
	TemplateEntry = "wpmz/template.kml"
	WaylinesEntry = "wpmz/waylines.wpml"
	resourceDir   = "wpmz/res"
)

// Archive is the content of one KMZ mission file.
type Archive struct {
	Template *Template
	Wayline  *Wayline
	// Resources maps archive names below wpmz/res to local files copied
	// into the archive, e.g. "dsm/plot.tif".
	Resources map[string]string
}

// SlotPath is the location DJI Pilot 2 expects for a mission slot:
// <dir>/<id>/<id>.kmz with an upper case UUID.
func SlotPath(dir string, id uuid.UUID) string {
	name := strings.ToUpper(id.String())
	return filepath.Join(dir, name, name+".kmz")
}

// Write validates the wayline and writes the archive to dest, creating
// missing parent directories.
func (a *Archive) Write(dest string) error {
	if a.Template == nil || a.Wayline == nil {
		return fmt.Errorf("%w: archive needs a template and a wayline", ErrInvalidMission)
	}
	if err := a.Wayline.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	if err := a.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteTo writes the zip archive to w.
func (a *Archive) WriteTo(w io.Writer) error {
	zw := zip.NewWriter(w)
	if err := writeDocument(zw, TemplateEntry, BuildTemplate(a.Template)); err != nil {
		return err
	}
	if err := writeDocument(zw, WaylinesEntry, BuildWaylines(a.Wayline)); err != nil {
		return err
	}
	names := make([]string, 0, len(a.Resources))
	for name := range a.Resources {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		src := a.Resources[name]
		if err := copyResource(zw, path.Join(resourceDir, filepath.ToSlash(name)), src); err != nil {
			return err
		}
	}
	return zw.Close()
}

func writeDocument(zw *zip.Writer, name string, doc *etree.Document) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func copyResource(zw *zip.Writer, name, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open resource: %w", err)
	}
	defer in.Close()
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
