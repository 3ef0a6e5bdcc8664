package chess

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"math"
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

type MoveHighlight struct {
	From nchess.Square
	To   nchess.Square
}

type RenderOptions struct {
	LastMove *MoveHighlight
	// Header is shown top left, Badge top right and Footer centred above
	// the board.
	Header string
	Badge  string
	Footer string
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, board *nchess.Board, opts RenderOptions) ([]byte, error)
}

type svgBoardRenderer struct {
	pieces *pieceSet
}

// RendererOption customises NewSVGBoardRenderer.
type RendererOption func(*svgBoardRenderer)

// WithPieceDir loads piece artwork named wK.svg, bN.svg and so on from dir.
// Missing files fall back to the built-in set.
func WithPieceDir(dir string) RendererOption {
	return func(r *svgBoardRenderer) {
		r.pieces = newPieceSet(dir)
	}
}

func NewSVGBoardRenderer(options ...RendererOption) BoardRenderer {
	r := &svgBoardRenderer{pieces: newPieceSet("")}
	for _, opt := range options {
		opt(r)
	}
	return r
}

const (
	squareSize    = 64
	boardSize     = squareSize * 8
	sideMargin    = 32
	topMargin     = 100
	bottomMargin  = 32
	panelHeight   = 32
	panelGap      = 10
	panelRadius   = 10
	panelPaddingX = 18
)

var (
	lightSquare       = color.RGBA{233, 207, 163, 255}
	darkSquare        = color.RGBA{187, 136, 96, 255}
	backgroundColor   = color.RGBA{22, 24, 34, 255}
	whiteMoveFill     = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	blackMoveArrow    = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	neutralMoveArrow  = color.NRGBA{R: 182, G: 184, B: 190, A: 140}
	hudPanelColor     = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	hudFooterColor    = color.NRGBA{R: 40, G: 44, B: 64, A: 250}
	hudTextPrimary    = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	hudTextSecondary  = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
	coordinateTextClr = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
	boardShadowColor  = color.NRGBA{0, 0, 0, 60}
)

var (
	ranksTopToBottom = []nchess.Rank{nchess.Rank8, nchess.Rank7, nchess.Rank6, nchess.Rank5, nchess.Rank4, nchess.Rank3, nchess.Rank2, nchess.Rank1}
	filesLeftToRight = []nchess.File{nchess.FileA, nchess.FileB, nchess.FileC, nchess.FileD, nchess.FileE, nchess.FileF, nchess.FileG, nchess.FileH}
)

var (
	captionFaceOnce    sync.Once
	captionFace        font.Face
	captionFaceLoadErr error
)

func (r *svgBoardRenderer) RenderPNG(ctx context.Context, board *nchess.Board, opts RenderOptions) ([]byte, error) {
	if board == nil {
		return nil, fmt.Errorf("board is nil")
	}
	face, err := loadCaptionFace()
	if err != nil {
		return nil, err
	}

	width := boardSize + sideMargin*2
	height := boardSize + topMargin + bottomMargin
	origin := image.Point{X: sideMargin, Y: topMargin}
	boardRect := image.Rect(origin.X, origin.Y, origin.X+boardSize, origin.Y+boardSize)

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawHUD(img, face, boardRect, opts)
	imagedraw.Draw(img, boardRect.Add(image.Pt(4, 8)), image.NewUniform(boardShadowColor), image.Point{}, imagedraw.Over)
	drawSquares(img, origin)
	drawLastMove(img, board, opts.LastMove, origin)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.drawPieces(img, board, origin); err != nil {
		return nil, err
	}
	drawCoordinates(img, face, origin)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func loadCaptionFace() (font.Face, error) {
	captionFaceOnce.Do(func() {
		parsed, err := opentype.Parse(gobold.TTF)
		if err != nil {
			captionFaceLoadErr = fmt.Errorf("parse caption font: %w", err)
			return
		}
		captionFace, captionFaceLoadErr = opentype.NewFace(parsed, &opentype.FaceOptions{
			Size:    15,
			DPI:     72,
			Hinting: font.HintingFull,
		})
	})
	return captionFace, captionFaceLoadErr
}

func squareRect(sq nchess.Square, origin image.Point) image.Rectangle {
	col := int(sq.File())
	row := 7 - int(sq.Rank())
	x := origin.X + col*squareSize
	y := origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func squareColor(sq nchess.Square) color.Color {
	if (int(sq.File())+int(sq.Rank()))%2 == 0 {
		return darkSquare
	}
	return lightSquare
}

func drawSquares(dst *image.RGBA, origin image.Point) {
	for _, rank := range ranksTopToBottom {
		for _, file := range filesLeftToRight {
			sq := nchess.NewSquare(file, rank)
			imagedraw.Draw(dst, squareRect(sq, origin), image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)
		}
	}
}

func (r *svgBoardRenderer) drawPieces(dst *image.RGBA, board *nchess.Board, origin image.Point) error {
	for sq, piece := range board.SquareMap() {
		if piece == nchess.NoPiece {
			continue
		}
		img, err := r.pieces.render(piece, squareSize)
		if err != nil {
			return err
		}
		imagedraw.Draw(dst, squareRect(sq, origin), img, image.Point{}, imagedraw.Over)
	}
	return nil
}

// drawLastMove marks white moves with filled squares and black moves with
// an arrow, so the bot's reply stands out.
func drawLastMove(img *image.RGBA, board *nchess.Board, mv *MoveHighlight, origin image.Point) {
	if mv == nil || mv.From == mv.To {
		return
	}
	mover := nchess.NoColor
	if piece := board.Piece(mv.To); piece != nchess.NoPiece {
		mover = piece.Color()
	}
	switch mover {
	case nchess.White:
		for _, sq := range []nchess.Square{mv.From, mv.To} {
			imagedraw.Draw(img, squareRect(sq, origin), image.NewUniform(whiteMoveFill), image.Point{}, imagedraw.Over)
		}
	case nchess.Black:
		drawArrow(img, squareRect(mv.From, origin), squareRect(mv.To, origin), blackMoveArrow)
	default:
		drawArrow(img, squareRect(mv.From, origin), squareRect(mv.To, origin), neutralMoveArrow)
	}
}

type pointF struct{ X, Y float64 }

func center(r image.Rectangle) pointF {
	return pointF{X: float64(r.Min.X+r.Max.X) / 2, Y: float64(r.Min.Y+r.Max.Y) / 2}
}

func drawArrow(img *image.RGBA, from, to image.Rectangle, clr color.Color) {
	start, end := center(from), center(to)
	dx, dy := end.X-start.X, end.Y-start.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	ux, uy := dx/length, dy/length
	px, py := -uy, ux

	shaft := squareSize * 0.16
	head := squareSize * 0.34
	headLen := squareSize * 0.42
	if headLen > length*0.6 {
		headLen = length * 0.6
	}
	baseX, baseY := end.X-ux*headLen, end.Y-uy*headLen

	fillPolygon(img, clr,
		pointF{start.X + px*shaft/2, start.Y + py*shaft/2},
		pointF{baseX + px*shaft/2, baseY + py*shaft/2},
		pointF{baseX + px*head/2, baseY + py*head/2},
		end,
		pointF{baseX - px*head/2, baseY - py*head/2},
		pointF{baseX - px*shaft/2, baseY - py*shaft/2},
		pointF{start.X - px*shaft/2, start.Y - py*shaft/2},
	)
}

// fillPolygon rasterises a closed, anti-aliased polygon onto img.
func fillPolygon(img *image.RGBA, clr color.Color, pts ...pointF) {
	if len(pts) < 3 {
		return
	}
	b := img.Bounds()
	scanner := rasterx.NewScannerGV(b.Dx(), b.Dy(), img, b)
	filler := rasterx.NewFiller(b.Dx(), b.Dy(), scanner)
	filler.SetColor(clr)
	filler.Start(rasterx.ToFixedP(pts[0].X, pts[0].Y))
	for _, p := range pts[1:] {
		filler.Line(rasterx.ToFixedP(p.X, p.Y))
	}
	filler.Stop(true)
	filler.Draw()
}

func roundedRect(img *image.RGBA, rect image.Rectangle, radius float64, clr color.Color) {
	if rect.Empty() {
		return
	}
	maxR := math.Min(float64(rect.Dx()), float64(rect.Dy())) / 2
	if radius > maxR {
		radius = maxR
	}
	minX, minY := float64(rect.Min.X), float64(rect.Min.Y)
	maxX, maxY := float64(rect.Max.X), float64(rect.Max.Y)

	corners := []struct {
		cx, cy, from float64
	}{
		{maxX - radius, minY + radius, -math.Pi / 2},
		{maxX - radius, maxY - radius, 0},
		{minX + radius, maxY - radius, math.Pi / 2},
		{minX + radius, minY + radius, math.Pi},
	}
	const steps = 6
	pts := make([]pointF, 0, len(corners)*(steps+1))
	for _, c := range corners {
		for i := 0; i <= steps; i++ {
			a := c.from + (math.Pi/2)*float64(i)/steps
			pts = append(pts, pointF{c.cx + radius*math.Cos(a), c.cy + radius*math.Sin(a)})
		}
	}
	fillPolygon(img, clr, pts...)
}

func drawHUD(img *image.RGBA, face font.Face, boardRect image.Rectangle, opts RenderOptions) {
	drawer := &font.Drawer{Dst: img, Face: face}

	header := strings.TrimSpace(opts.Header)
	if header == "" {
		header = "Adaptive chess"
	}
	badge := strings.TrimSpace(opts.Badge)
	footer := strings.TrimSpace(opts.Footer)

	footerBottom := boardRect.Min.Y - panelGap*2
	footerTop := footerBottom - panelHeight
	headerBottom := footerTop - panelGap
	headerTop := headerBottom - panelHeight

	badgeWidth := 0
	if badge != "" {
		badgeWidth = drawer.MeasureString(badge).Round() + panelPaddingX*2
		badgeRect := image.Rect(boardRect.Max.X-badgeWidth, headerTop, boardRect.Max.X, headerBottom)
		roundedRect(img, badgeRect, panelRadius, hudPanelColor)
		drawCenteredString(drawer, badgeRect, badge, hudTextPrimary)
	}

	maxHeader := boardRect.Dx() - badgeWidth - panelGap
	header = truncateWithEllipsis(face, header, maxHeader-panelPaddingX*2)
	headerWidth := drawer.MeasureString(header).Round() + panelPaddingX*2
	headerRect := image.Rect(boardRect.Min.X, headerTop, boardRect.Min.X+headerWidth, headerBottom)
	roundedRect(img, headerRect, panelRadius, hudPanelColor)
	drawCenteredString(drawer, headerRect, header, hudTextPrimary)

	if footer != "" {
		footer = truncateWithEllipsis(face, footer, boardRect.Dx()-panelPaddingX*4)
		footerWidth := drawer.MeasureString(footer).Round() + panelPaddingX*2
		left := boardRect.Min.X + (boardRect.Dx()-footerWidth)/2
		footerRect := image.Rect(left, footerTop, left+footerWidth, footerBottom)
		roundedRect(img, footerRect, panelRadius, hudFooterColor)
		drawCenteredString(drawer, footerRect, footer, hudTextSecondary)
	}
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || maxWidth <= 0 {
		return trimmed
	}
	drawer := font.Drawer{Face: face}
	if drawer.MeasureString(trimmed).Round() <= maxWidth {
		return trimmed
	}
	runes := []rune(trimmed)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "..."
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ""
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	if text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := rect.Min.X + (rect.Dx()-width)/2
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

func drawCoordinates(dst *image.RGBA, face font.Face, origin image.Point) {
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordinateTextClr)}
	ascent := face.Metrics().Ascent.Ceil()

	for row, rank := range ranksTopToBottom {
		label := rank.String()
		w := drawer.MeasureString(label).Round()
		drawer.Dot = fixed.P(origin.X-sideMargin/2-w/2, origin.Y+row*squareSize+squareSize/2+ascent/2)
		drawer.DrawString(label)
	}
	for col, file := range filesLeftToRight {
		label := file.String()
		w := drawer.MeasureString(label).Round()
		drawer.Dot = fixed.P(origin.X+col*squareSize+squareSize/2-w/2, origin.Y+boardSize+ascent)
		drawer.DrawString(label)
	}
}
