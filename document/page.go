package document

import "github.com/tsawler/lazypdf/core"

// Rect is a rectangle [llx lly urx ury] in default user space units
type Rect [4]float64

// LetterSize is the media box assumed when a page has none
var LetterSize = Rect{0, 0, 612, 792}

// Normalize orders the corners so the first is the lower left one
func (r Rect) Normalize() Rect {
	if r[0] > r[2] {
		r[0], r[2] = r[2], r[0]
	}
	if r[1] > r[3] {
		r[1], r[3] = r[3], r[1]
	}
	return r
}

func (r Rect) Width() float64  { return r[2] - r[0] }
func (r Rect) Height() float64 { return r[3] - r[1] }

// Page is a page leaf with its inherited attributes resolved. Every field
// is filled when the page is looked up, so using a Page never reads the
// file.
type Page struct {
	Index     int
	Ref       *core.IndirectRef // nil for a direct kid
	Dict      core.Dict
	MediaBox  Rect
	CropBox   Rect
	Rotate    int // 0, 90, 180 or 270
	Resources core.Dict
}

// Width returns the page width (from MediaBox)
func (p *Page) Width() float64 {
	return p.MediaBox.Width()
}

// Height returns the page height (from MediaBox)
func (p *Page) Height() float64 {
	return p.MediaBox.Height()
}
