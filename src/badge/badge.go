// Package badge generates shields-style SVG status badges. Text is
// measured with real font metrics so widths match what browsers render.
package badge

import (
	"fmt"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

const (
	fontSize = 11
	padding  = 6
)

// Badge defines the content and appearance of a single badge.
type Badge struct {
	Label string // left side text
	Value string // right side text
	Color string // hex color for right side (e.g. "#4c1")
}

// Engine generates SVG badges using embedded font metrics.
type Engine struct {
	face font.Face
}

// New creates a badge engine.
func New() (*Engine, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size: fontSize,
		DPI:  72,
	})
	if err != nil {
		return nil, fmt.Errorf("creating font face: %w", err)
	}
	return &Engine{face: face}, nil
}

// StatusColor maps a status keyword to a badge hex color.
func StatusColor(status string) string {
	switch status {
	case "passed", "success", "done":
		return "#4c1"
	case "skipped":
		return "#dfb317"
	case "critical", "failed":
		return "#e05d44"
	default:
		return "#9f9f9f"
	}
}

// Generate produces a shields.io-compatible SVG badge string.
func (e *Engine) Generate(b Badge) string {
	labelW := e.textWidth(b.Label) + 2*padding
	valueW := e.textWidth(b.Value) + 2*padding
	total := labelW + valueW

	color := b.Color
	if color == "" {
		color = StatusColor("unknown")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="20">`, total)
	fmt.Fprintf(&sb, `<rect width="%d" height="20" fill="#555"/>`, labelW)
	fmt.Fprintf(&sb, `<rect x="%d" width="%d" height="20" fill="%s"/>`, labelW, valueW, color)
	fmt.Fprintf(&sb, `<g fill="#fff" text-anchor="middle" font-family="Verdana,Geneva,DejaVu Sans,sans-serif" font-size="11">`)
	fmt.Fprintf(&sb, `<text x="%d" y="14">%s</text>`, labelW/2, escape(b.Label))
	fmt.Fprintf(&sb, `<text x="%d" y="14">%s</text>`, labelW+valueW/2, escape(b.Value))
	sb.WriteString(`</g></svg>`)
	return sb.String()
}

// textWidth measures rendered text width in pixels.
func (e *Engine) textWidth(s string) int {
	return font.MeasureString(e.face, s).Ceil()
}

func escape(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
	)
	return r.Replace(s)
}
