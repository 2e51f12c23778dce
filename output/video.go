package output

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"os"
	"strings"

	"github.com/icza/mjpeg"
)

// The map tour shows each dropdown view for two seconds.
const (
	mapTourFPS  = 1
	mapTourHold = 2
)

var ErrNoFrames = errors.New("no frames to encode")

// RenderMapTour encodes the given PNG frames as an MJPEG AVI, each frame
// held for holdFrames ticks. Frames are drawn onto the size of the first.
func RenderMapTour(framePaths []string, outputPath string, holdFrames int) error {
	if len(framePaths) == 0 {
		return ErrNoFrames
	}
	if !strings.HasSuffix(outputPath, ".avi") {
		outputPath += ".avi"
	}
	if holdFrames < 1 {
		holdFrames = 1
	}

	frames := make([][]byte, 0, len(framePaths))
	var bounds image.Rectangle
	for i, path := range framePaths {
		img, err := decodeImage(path)
		if err != nil {
			return err
		}
		if i == 0 {
			bounds = img.Bounds()
		}
		canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
		draw.Draw(canvas, canvas.Bounds(), img, img.Bounds().Min, draw.Over)

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: 90}); err != nil {
			return fmt.Errorf("error encoding frame %s: %w", path, err)
		}
		frames = append(frames, buf.Bytes())
	}

	writer, err := mjpeg.New(outputPath, int32(bounds.Dx()), int32(bounds.Dy()), mapTourFPS)
	if err != nil {
		return fmt.Errorf("error creating video writer: %w", err)
	}
	for _, frame := range frames {
		for i := 0; i < holdFrames; i++ {
			if err := writer.AddFrame(frame); err != nil {
				writer.Close()
				return fmt.Errorf("error adding frame: %w", err)
			}
		}
	}
	return writer.Close()
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("error decoding %s: %w", path, err)
	}
	return img, nil
}
