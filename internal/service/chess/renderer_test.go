package chess

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	nchess "github.com/corentings/chess/v2"
)

func TestRenderPNGStartingPosition(t *testing.T) {
	r := NewSVGBoardRenderer()
	board := nchess.NewGame().Position().Board()

	data, err := r.RenderPNG(context.Background(), board, RenderOptions{
		Header: "Depth 4",
		Badge:  "1200 Initial",
		Footer: "White to move",
		LastMove: &MoveHighlight{
			From: nchess.NewSquare(nchess.FileE, nchess.Rank2),
			To:   nchess.NewSquare(nchess.FileE, nchess.Rank4),
		},
	})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b := img.Bounds()
	if b.Dx() < 8*squareSize || b.Dy() < 8*squareSize {
		t.Fatalf("image too small: %v", b)
	}
}

func TestRenderPNGRejectsNilBoard(t *testing.T) {
	if _, err := NewSVGBoardRenderer().RenderPNG(context.Background(), nil, RenderOptions{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestPieceSetUsesOverrides(t *testing.T) {
	dir := t.TempDir()
	svg := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10"><rect width="10" height="10" fill="#ff0000"/></svg>`
	if err := os.WriteFile(filepath.Join(dir, "wK.svg"), []byte(svg), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	set := newPieceSet(dir)
	king, err := set.render(nchess.WhiteKing, 32)
	if err != nil {
		t.Fatalf("render override: %v", err)
	}
	r, g, _, a := king.At(16, 16).RGBA()
	if a == 0 || r>>8 < 200 || g>>8 > 50 {
		t.Fatalf("override not used: rgba=%d,%d,%d", r>>8, g>>8, a>>8)
	}

	queen, err := set.render(nchess.BlackQueen, 32)
	if err != nil {
		t.Fatalf("render builtin: %v", err)
	}
	again, _ := set.render(nchess.BlackQueen, 32)
	if queen != again {
		t.Fatal("rendered piece not cached")
	}
}

func TestBuiltinPiecesAllRender(t *testing.T) {
	set := newPieceSet("")
	for _, piece := range []nchess.Piece{
		nchess.WhiteKing, nchess.WhiteQueen, nchess.WhiteRook, nchess.WhiteBishop, nchess.WhiteKnight, nchess.WhitePawn,
		nchess.BlackKing, nchess.BlackQueen, nchess.BlackRook, nchess.BlackBishop, nchess.BlackKnight, nchess.BlackPawn,
	} {
		if _, err := set.render(piece, squareSize); err != nil {
			t.Fatalf("%s: %v", pieceAssetName(piece), err)
		}
	}
}

func TestServiceRenderBoard(t *testing.T) {
	svc := newTestService(t, newFakeProvider(nil), nil)
	ctx := context.Background()
	if _, err := svc.ApplyHumanMove(ctx, "s", "e2e4"); err != nil {
		t.Fatalf("ApplyHumanMove: %v", err)
	}
	data, err := svc.RenderBoard(ctx, "s")
	if err != nil {
		t.Fatalf("RenderBoard: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestSanitizeSVG(t *testing.T) {
	in := `<path style="fill: #fff; stroke: 000000"/><rect style="fill:000000"/>`
	want := `<path style="fill:#fff; stroke:#000000"/><rect style="fill:#000000"/>`
	if got := string(sanitizeSVG([]byte(in))); got != want {
		t.Fatalf("sanitizeSVG = %q", got)
	}
}
