package render

import (
	"image/color"

	uv "github.com/charmbracelet/ultraviolet"
)

// halfBlock shows the top pixel as foreground and the bottom as background.
const halfBlock = "▀"

// TerminalRenderer presents framebuffers in a terminal, two pixel rows per
// cell row.
type TerminalRenderer struct {
	term   *uv.Terminal
	width  int // Columns
	height int // Rows
}

// NewTerminalRenderer creates a renderer for a terminal of the given size in
// cells.
func NewTerminalRenderer(term *uv.Terminal, width, height int) *TerminalRenderer {
	return &TerminalRenderer{term: term, width: width, height: height}
}

// FramebufferSize returns the framebuffer dimensions that exactly fill the
// terminal.
func (t *TerminalRenderer) FramebufferSize() (width, height int) {
	return t.width, t.height * 2
}

// Present copies the framebuffer into the terminal's cell buffer and writes
// the changed cells out.
func (t *TerminalRenderer) Present(fb *Framebuffer) error {
	fb.Draw(t.term, uv.Rect(0, 0, t.width, t.height))
	return t.term.Display()
}

// Draw implements uv.Drawable. Cell row r shows framebuffer rows 2r and
// 2r+1; columns past the framebuffer width are left untouched.
func (fb *Framebuffer) Draw(scr uv.Screen, area uv.Rectangle) {
	for row := area.Min.Y; row < area.Max.Y; row++ {
		for col := area.Min.X; col < area.Max.X && col < fb.Width; col++ {
			scr.SetCell(col, row, &uv.Cell{
				Content: halfBlock,
				Width:   1,
				Style: uv.Style{
					Fg: cellColor(fb.GetPixel(col, row*2)),
					Bg: cellColor(fb.GetPixel(col, row*2+1)),
				},
			})
		}
	}
}

// cellColor maps fully transparent pixels to the terminal default.
func cellColor(c color.RGBA) color.Color {
	if c.A == 0 {
		return nil
	}
	return c
}
