package output

import (
	"fmt"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/forest-guardian/lst-ndvi-cli/internal/raster"
	"github.com/forest-guardian/lst-ndvi-cli/internal/view"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	mapCanvasSize = 900
	panelPadding  = 10.0
	panelMargin   = 10.0
	lineHeight    = 18.0
	swatchSize    = 14.0
	fontSize      = 13.0
)

var (
	panelFontOnce sync.Once
	panelFont     *truetype.Font
	panelFontErr  error
)

// panelFace is Go Regular, which has the degree sign used in the stats panel.
func panelFace() (font.Face, error) {
	panelFontOnce.Do(func() {
		panelFont, panelFontErr = truetype.Parse(goregular.TTF)
	})
	if panelFontErr != nil {
		return nil, fmt.Errorf("failed to parse panel font: %w", panelFontErr)
	}
	return truetype.NewFace(panelFont, &truetype.Options{Size: fontSize}), nil
}

// RenderMapPNG draws one dropdown scene: the raster layer, the region outline
// and every panel at its anchor.
func RenderMapPNG(path string, scene view.Scene, model view.Model, img *raster.Image) error {
	if img.Width == 0 || img.Height == 0 {
		return fmt.Errorf("image is empty")
	}
	scale := float64(mapCanvasSize) / float64(max(img.Width, img.Height))
	ox := (mapCanvasSize - float64(img.Width)*scale) / 2
	oy := (mapCanvasSize - float64(img.Height)*scale) / 2

	dc := gg.NewContext(mapCanvasSize, mapCanvasSize)
	face, err := panelFace()
	if err != nil {
		return err
	}
	dc.SetFontFace(face)
	dc.SetRGB(0.93, 0.93, 0.9)
	dc.Clear()

	for _, layer := range scene.Layers {
		switch layer.Kind {
		case view.LayerRaster:
			rgba, err := colorize(img, layer.Vis)
			if err != nil {
				return fmt.Errorf("layer %s: %w", layer.Name, err)
			}
			dc.Push()
			dc.Translate(ox, oy)
			dc.Scale(scale, scale)
			dc.DrawImage(rgba, 0, 0)
			dc.Pop()
		case view.LayerOutline:
			if err := drawOutline(dc, layer.Outline, model, img.Transform, ox, oy, scale); err != nil {
				return fmt.Errorf("layer %s: %w", layer.Name, err)
			}
		}
	}

	for _, p := range scene.Panels {
		if err := drawPanel(dc, p); err != nil {
			return err
		}
	}
	drawDropdown(dc, scene.Dropdown)

	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}

func drawOutline(dc *gg.Context, style view.OutlineStyle, model view.Model, gt raster.GeoTransform, ox, oy, scale float64) error {
	stroke, err := parseHex(style.Color)
	if err != nil {
		return err
	}
	fill, err := parseHex(style.FillColor)
	if err != nil {
		return err
	}
	for _, ring := range model.Rings {
		for i, p := range ring {
			x := ox + (p.X()-gt[0])/gt[1]*scale
			y := oy + (p.Y()-gt[3])/gt[5]*scale
			if i == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
		dc.ClosePath()
	}
	dc.SetColor(fill)
	dc.FillPreserve()
	dc.SetColor(stroke)
	dc.SetLineWidth(math.Max(style.Width, 1))
	dc.Stroke()
	return nil
}

func panelOrigin(pos view.Position, w, h float64) (float64, float64) {
	switch pos {
	case view.TopCenter:
		return (mapCanvasSize - w) / 2, panelMargin
	case view.BottomLeft:
		return panelMargin, mapCanvasSize - h - panelMargin
	case view.BottomRight:
		return mapCanvasSize - w - panelMargin, mapCanvasSize - h - panelMargin
	}
	return panelMargin, panelMargin
}

func drawPanel(dc *gg.Context, p view.Panel) error {
	lines := []string{p.Title}
	for _, row := range p.Rows {
		lines = append(lines, fmt.Sprintf("%-5s %s", row.Label, row.Value))
	}
	indent := 0.0
	if len(p.Legend) > 0 {
		indent = swatchSize + 6
		for _, e := range p.Legend {
			lines = append(lines, e.Label)
		}
	}

	width := 0.0
	for i, l := range lines {
		w, _ := dc.MeasureString(l)
		if i > 0 {
			w += indent
		}
		width = math.Max(width, w)
	}
	w := width + 2*panelPadding
	h := float64(len(lines))*lineHeight + 2*panelPadding
	x, y := panelOrigin(p.Position, w, h)

	dc.SetRGB(1, 1, 1)
	dc.DrawRectangle(x, y, w, h)
	dc.FillPreserve()
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	dc.Stroke()

	ty := y + panelPadding + lineHeight/2
	dc.DrawStringAnchored(p.Title, x+panelPadding, ty, 0, 0.5)
	for _, row := range lines[1 : 1+len(p.Rows)] {
		ty += lineHeight
		dc.DrawStringAnchored(row, x+panelPadding, ty, 0, 0.5)
	}
	for _, e := range p.Legend {
		ty += lineHeight
		c, err := parseHex(e.Color)
		if err != nil {
			return err
		}
		dc.SetColor(c)
		dc.DrawRectangle(x+panelPadding, ty-swatchSize/2, swatchSize, swatchSize)
		dc.Fill()
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(e.Label, x+panelPadding+indent, ty, 0, 0.5)
	}
	return nil
}

func drawDropdown(dc *gg.Context, d view.Dropdown) {
	label := d.Selected + "  v"
	tw, _ := dc.MeasureString(label)
	w, h := tw+2*panelPadding, lineHeight+panelPadding
	x, y := panelOrigin(d.Position, w, h)
	dc.SetRGB(1, 1, 1)
	dc.DrawRectangle(x, y, w, h)
	dc.FillPreserve()
	dc.SetRGB(0.4, 0.4, 0.4)
	dc.SetLineWidth(1)
	dc.Stroke()
	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(label, x+panelPadding, y+h/2, 0, 0.5)
}
