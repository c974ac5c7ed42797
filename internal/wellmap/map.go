// Package wellmap renders well locations as a standalone Leaflet HTML page.
package wellmap

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"strings"

	"well-report/internal/models"
)

//go:embed templates/map.html
var content embed.FS

var mapTemplate = template.Must(template.ParseFS(content, "templates/map.html"))

// TileLayer is a Leaflet tile source.
type TileLayer struct {
	URL         string
	Attribution string
	MaxZoom     int
}

var tileLayers = map[string]TileLayer{
	"openstreetmap": {
		URL:         "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`,
		MaxZoom:     19,
	},
	"cartodb positron": {
		URL:         "https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}{r}.png",
		Attribution: `&copy; OpenStreetMap contributors &copy; <a href="https://carto.com/attributions">CARTO</a>`,
		MaxZoom:     20,
	},
	"cartodb dark_matter": {
		URL:         "https://{s}.basemaps.cartocdn.com/dark_all/{z}/{x}/{y}{r}.png",
		Attribution: `&copy; OpenStreetMap contributors &copy; <a href="https://carto.com/attributions">CARTO</a>`,
		MaxZoom:     20,
	},
	"opentopomap": {
		URL:         "https://{s}.tile.opentopomap.org/{z}/{x}/{y}.png",
		Attribution: `&copy; OpenStreetMap contributors, SRTM | &copy; <a href="https://opentopomap.org">OpenTopoMap</a>`,
		MaxZoom:     17,
	},
}

// ResolveTiles maps a tile name (case-insensitive) to a layer. A value
// containing "{z}" is taken as a raw URL template.
func ResolveTiles(name string) (TileLayer, error) {
	if strings.Contains(name, "{z}") {
		return TileLayer{URL: name, MaxZoom: 19}, nil
	}
	layer, ok := tileLayers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return TileLayer{}, fmt.Errorf("unknown tiles %q", name)
	}
	return layer, nil
}

// Marker is a div-icon marker.
type Marker struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	HTML       string  `json:"html"`
	IconSize   [2]int  `json:"icon_size"`
	IconAnchor [2]int  `json:"icon_anchor"`
	Tooltip    string  `json:"tooltip,omitempty"`
}

// Map collects markers and raw HTML elements until it is rendered.
type Map struct {
	Title    string
	Center   models.Coordinate
	Zoom     int
	Tiles    TileLayer
	Markers  []Marker
	Elements []template.HTML
}

func New(center models.Coordinate, zoom int, tiles TileLayer) *Map {
	return &Map{Center: center, Zoom: zoom, Tiles: tiles}
}

func (m *Map) AddMarker(mk Marker) {
	m.Markers = append(m.Markers, mk)
}

// AddElement appends trusted HTML to the overlay drawn over the map.
func (m *Map) AddElement(html string) {
	m.Elements = append(m.Elements, template.HTML(html))
}

// Render writes the HTML page.
func (m *Map) Render(w io.Writer) error {
	markers := m.Markers
	if markers == nil {
		markers = []Marker{}
	}
	payload, err := json.Marshal(markers)
	if err != nil {
		return fmt.Errorf("marshal markers: %w", err)
	}

	data := struct {
		*Map
		MarkersJSON template.JS
	}{
		Map:         m,
		MarkersJSON: template.JS(payload),
	}

	var buf bytes.Buffer
	if err := mapTemplate.Execute(&buf, data); err != nil {
		return fmt.Errorf("execute map template: %w", err)
	}
	_, err = buf.WriteTo(w)
	return err
}

// Save renders the page to path.
func (m *Map) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := m.Render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
