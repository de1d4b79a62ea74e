package converter

import (
	"msfiles/apperr"
	"msfiles/models"
)

// ProportionParams resolves a missing target dimension from the aspect
// ratio of the source or an explicit target proportion.
type ProportionParams struct {
	TargetWidth      int
	TargetHeight     int
	OriginWidth      int
	OriginHeight     int
	TargetProportion float64
	// OnlyEven floors each resolved dimension to the nearest multiple
	// of 2. Video codecs require even frame sizes.
	OnlyEven bool
}

// SizeByProportion computes the output size. At least one target dimension
// must be set; the proportion comes from TargetProportion when given,
// otherwise from the origin dimensions.
func SizeByProportion(p ProportionParams) (models.Size, error) {
	if p.TargetWidth == 0 && p.TargetHeight == 0 {
		return models.Size{}, apperr.Processingf("target size not defined")
	}

	proportion := p.TargetProportion
	if proportion == 0 {
		if p.OriginWidth == 0 || p.OriginHeight == 0 {
			return models.Size{}, apperr.Processingf(
				"not enough data to calc size: pass target proportion or origin width with origin height")
		}
		proportion = float64(p.OriginWidth) / float64(p.OriginHeight)
	}

	var width, height int

	if p.TargetWidth > 0 {
		width = p.TargetWidth
		height = int(float64(p.TargetWidth) / proportion)
	}

	if p.TargetHeight > 0 {
		height = p.TargetHeight
		width = int(float64(p.TargetHeight) * proportion)
	}

	if p.OnlyEven {
		width = width / 2 * 2
		height = height / 2 * 2
	}

	return models.Size{Width: width, Height: height}, nil
}
