package converter

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"msfiles/models"
)

func TestParseThumbnailSpecs(t *testing.T) {
	specs, err := ParseThumbnailSpecs("150x150::cover::small,300x200::inside")
	if err != nil {
		t.Fatalf("ParseThumbnailSpecs failed: %v", err)
	}

	if len(specs) != 2 {
		t.Fatalf("Expected 2 specs, got %d", len(specs))
	}

	if specs[0].Width != 150 || specs[0].Height != 150 || specs[0].Fit != FitCover || specs[0].Alias != "small" {
		t.Errorf("Unexpected first spec: %+v", specs[0])
	}
	if specs[1].Width != 300 || specs[1].Height != 200 || specs[1].Fit != FitInside || specs[1].Alias != "" {
		t.Errorf("Unexpected second spec: %+v", specs[1])
	}
}

func TestParseThumbnailSpecs_Empty(t *testing.T) {
	specs, err := ParseThumbnailSpecs("  ")
	if err != nil {
		t.Fatalf("ParseThumbnailSpecs failed: %v", err)
	}
	if specs != nil {
		t.Errorf("Expected no specs, got %+v", specs)
	}
}

func TestParseThumbnailSpecs_Invalid(t *testing.T) {
	invalid := []string{
		"150x150",
		"150::cover",
		"0x150::cover",
		"axb::cover",
		"150x150::diagonal",
	}

	for _, raw := range invalid {
		if _, err := ParseThumbnailSpecs(raw); err == nil {
			t.Errorf("Expected error for %q", raw)
		}
	}
}

func TestThumbnailer_Make(t *testing.T) {
	logger := zaptest.NewLogger(t)
	specs := []ThumbnailSpec{
		{Width: 100, Height: 100, Fit: FitCover, Alias: "small"},
		{Width: 200, Height: 150, Fit: FitInside},
	}
	thumbnailer := NewThumbnailer(specs, NewImageConverter(logger), logger)

	inputPath := filepath.Join(t.TempDir(), "input.jpg")
	createTestImage(t, 800, 600, inputPath)

	thumbs, err := thumbnailer.Make(inputPath, models.Size{Width: 800, Height: 600})
	if err != nil {
		t.Fatalf("Make failed: %v", err)
	}

	if len(thumbs) != 2 {
		t.Fatalf("Expected 2 thumbnails, got %d", len(thumbs))
	}

	w, h := decodeDimensions(t, thumbs[0].Filepath)
	if w != 100 || h != 100 {
		t.Errorf("Expected 100x100 cover thumbnail, got %dx%d", w, h)
	}
	if thumbs[0].Spec.Alias != "small" {
		t.Errorf("Expected alias carried through, got %q", thumbs[0].Spec.Alias)
	}
}

func TestThumbnailer_Make_SkipsUpscale(t *testing.T) {
	logger := zaptest.NewLogger(t)
	specs := []ThumbnailSpec{
		{Width: 100, Height: 100, Fit: FitCover},
		{Width: 500, Height: 500, Fit: FitCover},
	}
	thumbnailer := NewThumbnailer(specs, NewImageConverter(logger), logger)

	inputPath := filepath.Join(t.TempDir(), "input.jpg")
	createTestImage(t, 300, 300, inputPath)

	thumbs, err := thumbnailer.Make(inputPath, models.Size{Width: 300, Height: 300})
	if err != nil {
		t.Fatalf("Make failed: %v", err)
	}

	if len(thumbs) != 1 {
		t.Fatalf("Expected the oversized spec to be skipped, got %d thumbnails", len(thumbs))
	}
	if thumbs[0].Spec.Width != 100 {
		t.Errorf("Wrong spec survived: %+v", thumbs[0].Spec)
	}
}

func TestThumbnailer_Make_SkipsEqualSize(t *testing.T) {
	logger := zaptest.NewLogger(t)
	specs := []ThumbnailSpec{{Width: 300, Height: 300, Fit: FitCover}}
	thumbnailer := NewThumbnailer(specs, NewImageConverter(logger), logger)

	inputPath := filepath.Join(t.TempDir(), "input.jpg")
	createTestImage(t, 300, 300, inputPath)

	thumbs, err := thumbnailer.Make(inputPath, models.Size{Width: 300, Height: 300})
	if err != nil {
		t.Fatalf("Make failed: %v", err)
	}

	if len(thumbs) != 0 {
		t.Fatalf("Expected no thumbnails for equal size, got %d", len(thumbs))
	}
}
