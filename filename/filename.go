// Package filename builds collision-resistant object names that stay
// operationally traceable: slugified original base, optional dimensions,
// a role tag and a short random suffix.
package filename

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"msfiles/models"
)

type Options struct {
	Width  int
	Height int
	// Ext overrides the extension of the original name. Accepted with or
	// without a leading dot.
	Ext  string
	Type models.FileType
}

var roleTags = map[models.FileType]string{
	models.TypeAltVideo:  "av",
	models.TypeMainFile:  "mf",
	models.TypePreview:   "pr",
	models.TypeThumbnail: "th",
	models.TypePart:      "pt",
}

const randomAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Generate produces "slug(base)[_WxH]_<role><random6><ext>". The random
// suffix gives practical uniqueness, so the gateway can treat name
// collisions as caller bugs.
func Generate(original string, opts Options) string {
	originExt := filepath.Ext(original)
	// Underscore-separated, matching the historical object name layout.
	base := strings.ReplaceAll(slug.Make(strings.TrimSuffix(original, originExt)), "-", "_")

	ext := opts.Ext
	if ext == "" {
		ext = strings.TrimPrefix(originExt, ".")
	}
	ext = strings.TrimPrefix(ext, ".")
	if ext != "" {
		ext = "." + strings.ToLower(ext)
	}

	var size string
	if opts.Width > 0 && opts.Height > 0 {
		size = fmt.Sprintf("_%dx%d", opts.Width, opts.Height)
	}

	tag, ok := roleTags[opts.Type]
	if !ok {
		tag = "df"
	}

	return base + size + "_" + tag + gonanoid.MustGenerate(randomAlphabet, 6) + ext
}
