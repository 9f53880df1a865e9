package infra

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const captionHeight = 24

// QRRenderer renders access codes as PNG images with a text caption
// (usually the code itself) printed under the symbol.
type QRRenderer struct {
	size int
}

func NewQRRenderer(size int) *QRRenderer {
	if size <= 0 {
		size = 320
	}
	return &QRRenderer{size: size}
}

func (r *QRRenderer) Render(codigo, caption string) ([]byte, error) {
	q, err := qrcode.New(codigo, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("qr: encode: %w", err)
	}
	symbol := q.Image(r.size)

	canvas := imaging.New(r.size, r.size+captionHeight, color.White)
	canvas = imaging.Paste(canvas, symbol, image.Pt(0, 0))

	face := basicfont.Face7x13
	text := fitCaption(face, caption, r.size-8)
	width := font.MeasureString(face, text).Ceil()
	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.Black),
		Face: face,
		Dot:  fixed.P((r.size-width)/2, r.size+captionHeight/2+4),
	}
	d.DrawString(text)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.PNG); err != nil {
		return nil, fmt.Errorf("qr: png: %w", err)
	}
	return buf.Bytes(), nil
}

func fitCaption(face font.Face, s string, maxWidth int) string {
	for len(s) > 0 && font.MeasureString(face, s).Ceil() > maxWidth {
		s = s[:len(s)-1]
	}
	return s
}

// DataURL embeds a PNG for direct use in an <img src>.
func DataURL(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

// SaveQR writes png under dir as {codigo}.png and returns the path.
func SaveQR(dir, codigo string, png []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("qr: create storage dir: %w", err)
	}
	path := filepath.Join(dir, filepath.Base(codigo)+".png")
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("qr: write file: %w", err)
	}
	return path, nil
}
