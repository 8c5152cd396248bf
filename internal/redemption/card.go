// Package redemption renders the printable redemption card a customer can
// keep with their code.
package redemption

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/fogleman/gg"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	// Layout positions for a 1024x640 card
	cardW     = 1024
	cardH     = 640
	bandH     = 120
	qrSize    = 220
	qrX       = 760
	qrY       = 260
	codeX     = 60
	codeY     = 410
	marginX   = 60
	footerY   = 600
	maxTitle  = 28
	footerTxt = "Enter your email and this code to download your files again."
)

var (
	brandColor = color.RGBA{108, 74, 182, 255}
	mutedColor = color.RGBA{120, 120, 120, 255}
)

// Card is what gets printed on a redemption card.
type Card struct {
	ProjectName string
	Code        string
	RedeemURL   string
}

// RenderPNG draws the card and returns it PNG-encoded.
func RenderPNG(card Card) ([]byte, error) {
	img, err := render(card)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderPDF wraps the card image on a Letter page.
func RenderPDF(card Card) ([]byte, error) {
	pngBytes, err := RenderPNG(card)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "Letter", "")
	pdf.SetTitle(fmt.Sprintf("Pipcasso redemption card %s", card.Code), true)
	pdf.AddPage()

	// Letter is 215.9mm wide; keep the card's 16:10 ratio at 160mm.
	imgWidth := 160.0
	imgHeight := imgWidth * cardH / cardW
	x := (215.9 - imgWidth) / 2
	y := 30.0

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	name := "card-" + card.Code
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(pngBytes))
	pdf.ImageOptions(name, x, y, imgWidth, imgHeight, false, opts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func render(card Card) (*image.RGBA, error) {
	if card.Code == "" {
		return nil, fmt.Errorf("card has no code")
	}

	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}

	dc := gg.NewContext(cardW, cardH)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	dc.SetColor(brandColor)
	dc.DrawRectangle(0, 0, cardW, bandH)
	dc.Fill()

	dc.SetRGB(1, 1, 1)
	dc.SetFontFace(truetype.NewFace(bold, &truetype.Options{Size: 48}))
	dc.DrawStringAnchored("Pipcasso", marginX, bandH/2, 0, 0.35)

	dc.SetRGB(0.15, 0.15, 0.15)
	dc.SetFontFace(truetype.NewFace(regular, &truetype.Options{Size: 40}))
	dc.DrawStringAnchored(truncateText(card.ProjectName, maxTitle), marginX, 200, 0, 0.5)

	dc.SetColor(mutedColor)
	dc.SetFontFace(truetype.NewFace(regular, &truetype.Options{Size: 26}))
	dc.DrawStringAnchored("Redemption code", marginX, 300, 0, 0.5)

	dc.SetRGB(0.96, 0.95, 0.99)
	dc.DrawRoundedRectangle(marginX-20, 330, 560, 120, 16)
	dc.Fill()

	dc.SetFontFace(truetype.NewFace(regular, &truetype.Options{Size: 22}))
	dc.SetColor(mutedColor)
	dc.DrawStringAnchored(footerTxt, marginX, footerY, 0, 0)

	img := image.NewRGBA(image.Rect(0, 0, cardW, cardH))
	draw.Draw(img, img.Bounds(), dc.Image(), image.Point{}, draw.Src)

	drawText(img, spaced(card.Code), codeX, codeY, bold, 72, brandColor)

	if card.RedeemURL != "" {
		qr, err := qrcode.New(card.RedeemURL, qrcode.Medium)
		if err != nil {
			return nil, fmt.Errorf("failed to generate QR code: %w", err)
		}
		qrImg := qr.Image(qrSize)
		b := qrImg.Bounds()
		draw.Draw(img, image.Rect(qrX, qrY, qrX+b.Dx(), qrY+b.Dy()), qrImg, image.Point{}, draw.Over)
	}

	return img, nil
}

// drawText draws text at the specified baseline position
func drawText(img *image.RGBA, text string, x, y int, f *truetype.Font, size float64, c color.Color) {
	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(f)
	ctx.SetFontSize(size)
	ctx.SetClip(img.Bounds())
	ctx.SetDst(img)
	ctx.SetSrc(image.NewUniform(c))
	ctx.SetHinting(font.HintingFull)

	_, _ = ctx.DrawString(text, freetype.Pt(x, y))
}

func spaced(code string) string {
	out := make([]rune, 0, len(code)*2)
	for i, r := range code {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, r)
	}
	return string(out)
}

func truncateText(text string, maxLength int) string {
	r := []rune(text)
	if len(r) <= maxLength {
		return text
	}
	return string(r[:maxLength-3]) + "..."
}
