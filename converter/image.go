package converter

import (
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"

	"msfiles/apperr"
	"msfiles/models"
)

// Fit selects how an image is mapped onto the target rectangle.
type Fit string

const (
	// FitInside scales the image down to fit within the target box,
	// preserving aspect ratio.
	FitInside Fit = "inside"
	// FitCover fills the target box, cropping the overflow.
	FitCover Fit = "cover"
	// FitFill stretches to the exact target size.
	FitFill Fit = "fill"
)

func ParseFit(s string) (Fit, bool) {
	switch Fit(s) {
	case FitInside, FitCover, FitFill:
		return Fit(s), true
	default:
		return "", false
	}
}

type ConvertImageOptions struct {
	// Ext is the output encoding: jpeg, jpg, png or webp. Webp sources
	// are re-encoded; webp output falls back to png since the encoder
	// side of webp is not available.
	Ext     string
	Quality int
	Width   int
	Height  int
	Fit     Fit
}

const defaultQuality = 80

// ImageConverter recompresses and resizes images on local disk. Outputs
// land next to the input under a random name.
type ImageConverter struct {
	logger *zap.Logger
}

func NewImageConverter(logger *zap.Logger) *ImageConverter {
	return &ImageConverter{logger: logger}
}

// Convert writes the converted image and returns its path.
func (c *ImageConverter) Convert(inputPath string, opts ConvertImageOptions) (string, error) {
	c.logger.Info("Start convert image",
		zap.String("input", inputPath),
		zap.String("ext", opts.Ext),
		zap.Int("width", opts.Width),
		zap.Int("height", opts.Height),
	)

	src, err := imaging.Open(inputPath, imaging.AutoOrientation(true))
	if err != nil {
		return "", apperr.Processing("failed to open image", err)
	}

	var out *image.NRGBA

	switch {
	case opts.Width == 0 && opts.Height == 0:
		out = imaging.Clone(src)
	case opts.Fit == FitCover && opts.Width > 0 && opts.Height > 0:
		out = imaging.Fill(src, opts.Width, opts.Height, imaging.Center, imaging.Lanczos)
	case opts.Fit == FitInside && opts.Width > 0 && opts.Height > 0:
		out = imaging.Fit(src, opts.Width, opts.Height, imaging.Lanczos)
	default:
		out = imaging.Resize(src, opts.Width, opts.Height, imaging.Lanczos)
	}

	ext, err := normalizeImageExt(opts.Ext)
	if err != nil {
		return "", err
	}

	quality := opts.Quality
	if quality == 0 {
		quality = defaultQuality
	}

	outputPath := filepath.Join(
		filepath.Dir(inputPath),
		gonanoid.MustGenerate(randomAlphabet, 6)+"."+ext,
	)

	var saveErr error
	switch ext {
	case "jpeg":
		saveErr = imaging.Save(out, outputPath, imaging.JPEGQuality(quality))
	case "png":
		saveErr = imaging.Save(out, outputPath)
	}
	if saveErr != nil {
		return "", apperr.Processing("failed to save image", saveErr)
	}

	c.logger.Info("Finish convert image", zap.String("output", outputPath))

	return outputPath, nil
}

// ImageSize reads the dimensions of an image file.
func (c *ImageConverter) ImageSize(path string) (models.Size, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Size{}, apperr.Processing("failed to open image", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return models.Size{}, apperr.Processing("failed to decode image", err)
	}

	return models.Size{Width: cfg.Width, Height: cfg.Height}, nil
}

const randomAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

func normalizeImageExt(ext string) (string, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "jpg", "jpeg":
		return "jpeg", nil
	case "png", "":
		return "png", nil
	case "webp":
		// No webp encoder available; png keeps the alpha channel.
		return "png", nil
	default:
		return "", apperr.Processingf("unsupported image extension [%s]", ext)
	}
}
