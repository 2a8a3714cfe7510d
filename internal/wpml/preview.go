package wpml

import (
	"fmt"
	"io"
	"os"

	kml "github.com/twpayne/go-kml"
)

// WritePreview writes the flight path of w as a KML line string with one
// point per action waypoint. relative selects the altitude mode of the
// rendered path.
func WritePreview(out io.Writer, name string, w *Wayline, relative bool) error {
	altMode := kml.AltitudeModeAbsolute
	if relative {
		altMode = kml.AltitudeModeRelativeToGround
	}

	points := make([]kml.Coordinate, len(w.Placemarks))
	var marks []kml.Element
	for i, p := range w.Placemarks {
		c := kml.Coordinate{Lon: p.Point.Lon, Lat: p.Point.Lat, Alt: p.ExecuteHeight}
		points[i] = c
		if len(p.Groups) == 0 {
			continue
		}
		marks = append(marks, kml.Placemark(
			kml.Name(fmt.Sprintf("WP %d", p.Index)),
			kml.Description(describe(p)),
			kml.Point(kml.AltitudeMode(altMode), kml.Coordinates(c)),
		))
	}

	track := kml.Placemark(
		kml.Name(name),
		kml.Description(fmt.Sprintf("distance %s m, duration %s s", FormatValue(w.Distance), FormatValue(w.Duration))),
		kml.LineString(
			kml.AltitudeMode(altMode),
			kml.Extrude(false),
			kml.Tessellate(false),
			kml.Coordinates(points...),
		),
	)
	doc := kml.KML(kml.Document(kml.Name(name)).Add(track).Add(marks...))
	return doc.WriteIndent(out, "", "  ")
}

func describe(p Placemark) string {
	var s string
	for _, g := range p.Groups {
		for _, a := range g.Actions {
			if s != "" {
				s += ", "
			}
			s += a.Func
		}
	}
	return s
}

// WritePreviewFile writes the preview to path.
func WritePreviewFile(path, name string, w *Wayline, relative bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create preview: %w", err)
	}
	if err := WritePreview(f, name, w, relative); err != nil {
		f.Close()
		return fmt.Errorf("write preview: %w", err)
	}
	return f.Close()
}
