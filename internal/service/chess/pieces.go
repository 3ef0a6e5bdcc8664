package chess

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

type pieceCacheKey struct {
	piece nchess.Piece
	size  int
}

// pieceSet rasterises piece artwork once per size.
type pieceSet struct {
	dir string

	mu    sync.RWMutex
	cache map[pieceCacheKey]image.Image
}

func newPieceSet(dir string) *pieceSet {
	return &pieceSet{dir: strings.TrimSpace(dir), cache: make(map[pieceCacheKey]image.Image)}
}

func (p *pieceSet) render(piece nchess.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: piece, size: size}

	p.mu.RLock()
	img, ok := p.cache[key]
	p.mu.RUnlock()
	if ok {
		return img, nil
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(p.source(piece)))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg %s: %w", pieceAssetName(piece), err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	rgba := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)

	p.mu.Lock()
	p.cache[key] = rgba
	p.mu.Unlock()
	return rgba, nil
}

// source prefers artwork from the configured directory.
func (p *pieceSet) source(piece nchess.Piece) []byte {
	if p.dir != "" {
		if data, err := os.ReadFile(filepath.Join(p.dir, pieceAssetName(piece))); err == nil {
			return sanitizeSVG(data)
		}
	}
	return builtinPieceSVG(piece)
}

// svgStyleFixes normalises style declarations oksvg fails to parse, mostly
// colours exported without a leading '#' or with a space after the colon.
var svgStyleFixes = strings.NewReplacer(
	"fill:000000", "fill:#000000",
	"fill: 000000", "fill:#000000",
	"stroke: 000000", "stroke:#000000",
	"fill: #", "fill:#",
	"stroke: #", "stroke:#",
	"stop-color: #", "stop-color:#",
)

func sanitizeSVG(svg []byte) []byte {
	return []byte(svgStyleFixes.Replace(string(svg)))
}

func pieceAssetName(piece nchess.Piece) string {
	prefix := "b"
	if piece.Color() == nchess.White {
		prefix = "w"
	}

	var suffix string
	switch piece.Type() {
	case nchess.King:
		suffix = "K"
	case nchess.Queen:
		suffix = "Q"
	case nchess.Rook:
		suffix = "R"
	case nchess.Bishop:
		suffix = "B"
	case nchess.Knight:
		suffix = "N"
	case nchess.Pawn:
		suffix = "P"
	}
	return prefix + suffix + ".svg"
}

// Built-in silhouettes on a 45x45 canvas. %[1]s is the body colour and
// %[2]s the outline colour.
var pieceShapes = map[nchess.PieceType]string{
	nchess.Pawn: `<circle cx="22.5" cy="13" r="5" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>` +
		`<path d="M 17 34 L 19.5 21 L 25.5 21 L 28 34 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>` +
		`<rect x="12" y="34" width="21" height="5" rx="1.5" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
	nchess.Rook: `<path d="M 12 9 L 16 9 L 16 12 L 20.5 12 L 20.5 9 L 24.5 9 L 24.5 12 L 29 12 L 29 9 L 33 9 L 33 16 L 12 16 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>` +
		`<rect x="15" y="16" width="15" height="17" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>` +
		`<rect x="11" y="33" width="23" height="6" rx="1.5" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
	nchess.Knight: `<path d="M 14 38 L 31 38 C 31 28 33 20 28 13 C 26 10 23 8 21 7 L 20 10 C 16 11 12 16 10 22 L 13 25 L 17 22 L 19 23 C 16 27 14 32 14 38 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>` +
		`<circle cx="18" cy="15" r="1.2" fill="%[2]s"/>`,
	nchess.Bishop: `<circle cx="22.5" cy="8" r="2.5" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>` +
		`<ellipse cx="22.5" cy="21" rx="7" ry="10" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>` +
		`<path d="M 20 18 L 25 18 M 22.5 15.5 L 22.5 20.5" stroke="%[2]s" stroke-width="1.5"/>` +
		`<rect x="12" y="32" width="21" height="6" rx="1.5" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
	nchess.Queen: `<path d="M 9 14 L 14 30 L 31 30 L 36 14 L 29 24 L 27 11 L 22.5 23 L 18 11 L 16 24 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>` +
		`<circle cx="9" cy="12" r="2" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>` +
		`<circle cx="18" cy="9" r="2" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>` +
		`<circle cx="27" cy="9" r="2" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>` +
		`<circle cx="36" cy="12" r="2" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>` +
		`<rect x="12" y="30" width="21" height="8" rx="2" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
	nchess.King: `<path d="M 22.5 5 L 22.5 13 M 18.5 9 L 26.5 9" stroke="%[2]s" stroke-width="2"/>` +
		`<path d="M 11 30 C 8 22 14 15 22.5 19 C 31 15 37 22 34 30 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>` +
		`<rect x="11" y="30" width="23" height="8" rx="2" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
}

func builtinPieceSVG(piece nchess.Piece) []byte {
	body, outline := "#1f1f1f", "#e8e8e8"
	if piece.Color() == nchess.White {
		body, outline = "#fafafa", "#1a1a1a"
	}
	shape := fmt.Sprintf(pieceShapes[piece.Type()], body, outline)
	return []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 45 45" width="45" height="45">` + shape + `</svg>`)
}
