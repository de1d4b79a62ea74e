package converter

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"msfiles/models"
)

// ThumbnailSpec is one configured thumbnail target. Alias is optional
// metadata carried into the artifact event, not part of the contract.
type ThumbnailSpec struct {
	Width  int
	Height int
	Fit    Fit
	Alias  string
}

// ParseThumbnailSpecs reads the THUMBNAIL_SIZES config format:
// "WxH::fit[::alias]" entries separated by commas, e.g.
// "150x150::cover::small,300x300::inside".
func ParseThumbnailSpecs(raw string) ([]ThumbnailSpec, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var specs []ThumbnailSpec

	for _, entry := range strings.Split(raw, ",") {
		parts := strings.Split(strings.TrimSpace(entry), "::")
		if len(parts) < 2 {
			return nil, fmt.Errorf("thumbnail spec [%s] must be in format [WxH::fit] or [WxH::fit::alias]", entry)
		}

		wh := strings.Split(parts[0], "x")
		if len(wh) != 2 {
			return nil, fmt.Errorf("thumbnail size [%s] must be in format [WxH]", parts[0])
		}

		w, errW := strconv.Atoi(wh[0])
		h, errH := strconv.Atoi(wh[1])
		if errW != nil || errH != nil || w <= 0 || h <= 0 {
			return nil, fmt.Errorf("thumbnail size [%s]: width and height must be positive integers", parts[0])
		}

		fit, ok := ParseFit(parts[1])
		if !ok {
			return nil, fmt.Errorf("thumbnail fit [%s]: available values are [inside, cover, fill]", parts[1])
		}

		spec := ThumbnailSpec{Width: w, Height: h, Fit: fit}
		if len(parts) > 2 {
			spec.Alias = parts[2]
		}

		specs = append(specs, spec)
	}

	return specs, nil
}

// Thumbnail is a rendered thumbnail on local disk.
type Thumbnail struct {
	Filepath string
	Spec     ThumbnailSpec
}

// Thumbnailer renders the configured thumbnail set for an image file.
type Thumbnailer struct {
	specs     []ThumbnailSpec
	converter *ImageConverter
	logger    *zap.Logger
}

func NewThumbnailer(specs []ThumbnailSpec, converter *ImageConverter, logger *zap.Logger) *Thumbnailer {
	return &Thumbnailer{specs: specs, converter: converter, logger: logger}
}

// Make renders one thumbnail per configured spec, skipping every spec whose
// target width or height is not smaller than the source dimension:
// thumbnails never upscale.
func (t *Thumbnailer) Make(inputPath string, source models.Size) ([]Thumbnail, error) {
	var result []Thumbnail

	for _, spec := range t.specs {
		if spec.Width >= source.Width || spec.Height >= source.Height {
			t.logger.Info("Skip thumbnail: target not smaller than source",
				zap.Int("target_width", spec.Width),
				zap.Int("target_height", spec.Height),
				zap.Int("source_width", source.Width),
				zap.Int("source_height", source.Height),
			)
			continue
		}

		path, err := t.converter.Convert(inputPath, ConvertImageOptions{
			Ext:    "jpeg",
			Width:  spec.Width,
			Height: spec.Height,
			Fit:    spec.Fit,
		})
		if err != nil {
			return nil, err
		}

		result = append(result, Thumbnail{Filepath: path, Spec: spec})
	}

	t.logger.Info("Finish make thumbnails",
		zap.String("input", inputPath),
		zap.Int("count", len(result)),
	)

	return result, nil
}

// Count reports how many thumbnail specs are configured.
func (t *Thumbnailer) Count() int { return len(t.specs) }
