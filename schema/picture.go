package schema

import (
	"bytes"
	"context"
	"fmt"
	"image"

	// Decoders for image.DecodeConfig.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/tsawler/slidesmith/model"
	"github.com/tsawler/slidesmith/pptx"
)

// normalizedFormats maps media extensions to the format names used in the model.
var normalizedFormats = map[string]string{
	"jpg":  "jpeg",
	"jpe":  "jpeg",
	"tif":  "tiff",
	"jfif": "jpeg",
}

// picture builds the picture descriptor of a pic shape. The returned error is
// non-fatal: the descriptor is still usable without pixel size or text.
func (x *Extractor) picture(ctx context.Context, pkg *pptx.Package, img *pptx.Image) (*model.Picture, error) {
	pic := &model.Picture{}
	if img == nil {
		return pic, nil
	}
	pic.Filename = img.Filename
	pic.Format = img.Ext
	if f, ok := normalizedFormats[img.Ext]; ok {
		pic.Format = f
	}
	if img.Part == "" {
		return pic, nil
	}

	data, ok := pkg.Part(img.Part)
	if !ok {
		return pic, fmt.Errorf("media part %s not found", img.Part)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		// Vector formats (emf, wmf, svg) have no raster header.
		return pic, nil
	}
	pic.PixelWidth = cfg.Width
	pic.PixelHeight = cfg.Height
	pic.Format = format

	if x.recognizer == nil {
		return pic, nil
	}
	text, err := x.recognizer.Recognize(ctx, data)
	if err != nil {
		return pic, fmt.Errorf("recognizing text in %s: %w", img.Part, err)
	}
	pic.RecognizedText = text
	return pic, nil
}
