package main

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/fractal"
)

// captionMargin is the distance of the caption from the bottom-left corner.
const captionMargin = 8

var (
	goregularOnce sync.Once
	goregularFont *opentype.Font
	goregularErr  error
)

// captionFace returns Go Regular at size points, or the 7x13 bitmap face
// when size is not positive.
func captionFace(size float64) (font.Face, error) {
	if size <= 0 {
		return basicfont.Face7x13, nil
	}
	goregularOnce.Do(func() {
		goregularFont, goregularErr = opentype.Parse(goregular.TTF)
	})
	if goregularErr != nil {
		return nil, goregularErr
	}
	return opentype.NewFace(goregularFont, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
}

func caption(fractalID string, v fractal.ViewState, iter uint) string {
	return fmt.Sprintf("%s  %.15g %+.15gi  w=%.3e  iter=%d", fractalID, v.CenterX, v.CenterY, v.Width, iter)
}

// drawCaption writes text into the bottom-left corner of img, white over a
// one-pixel black shadow so it reads on any palette.
func drawCaption(img *image.RGBA, text string, size float64) error {
	face, err := captionFace(size)
	if err != nil {
		return fmt.Errorf("caption font: %w", err)
	}
	defer face.Close()

	baseline := img.Bounds().Max.Y - captionMargin - face.Metrics().Descent.Ceil()
	d := &font.Drawer{Dst: img, Face: face}

	d.Src = image.NewUniform(color.Black)
	d.Dot = fixed.P(img.Bounds().Min.X+captionMargin+1, baseline+1)
	d.DrawString(text)

	d.Src = image.NewUniform(color.White)
	d.Dot = fixed.P(img.Bounds().Min.X+captionMargin, baseline)
	d.DrawString(text)
	return nil
}
