package filename

import (
	"regexp"
	"strings"
	"testing"

	"msfiles/models"
)

func TestGenerate_SlugAndTag(t *testing.T) {
	name := Generate("My Photo Album.JPG", Options{Type: models.TypeMainFile})

	if !strings.HasPrefix(name, "my_photo_album_mf") {
		t.Errorf("Expected slugged base with mf tag, got %s", name)
	}
	if !strings.HasSuffix(name, ".jpg") {
		t.Errorf("Expected lowercased extension, got %s", name)
	}
	if strings.Contains(name, "-") {
		t.Errorf("Slug separator must be underscore, got %s", name)
	}
}

func TestGenerate_Dimensions(t *testing.T) {
	name := Generate("clip.mp4", Options{Width: 1280, Height: 720, Type: models.TypeAltVideo})

	if !strings.Contains(name, "_1280x720_av") {
		t.Errorf("Expected dimensions before role tag, got %s", name)
	}
}

func TestGenerate_ExtOverride(t *testing.T) {
	name := Generate("photo.png", Options{Ext: "jpeg", Type: models.TypeThumbnail})

	if !strings.HasSuffix(name, ".jpeg") {
		t.Errorf("Expected overridden extension, got %s", name)
	}
	if strings.Contains(name, "png") {
		t.Errorf("Original extension should not survive, got %s", name)
	}
}

func TestGenerate_RoleTags(t *testing.T) {
	cases := map[models.FileType]string{
		models.TypeMainFile:  "_mf",
		models.TypeThumbnail: "_th",
		models.TypeAltVideo:  "_av",
		models.TypePreview:   "_pr",
		models.TypePart:      "_pt",
	}

	for fileType, tag := range cases {
		name := Generate("doc.bin", Options{Type: fileType})
		if !strings.Contains(name, tag) {
			t.Errorf("Type %s: expected tag %s in %s", fileType, tag, name)
		}
	}

	name := Generate("doc.bin", Options{})
	if !strings.Contains(name, "_df") {
		t.Errorf("Unknown type should get df tag, got %s", name)
	}
}

func TestGenerate_RandomSuffix(t *testing.T) {
	pattern := regexp.MustCompile(`^report_mf[0-9a-zA-Z]{6}\.pdf$`)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		name := Generate("report.pdf", Options{Type: models.TypeMainFile})
		if !pattern.MatchString(name) {
			t.Fatalf("Unexpected name format: %s", name)
		}
		if seen[name] {
			t.Fatalf("Duplicate name generated: %s", name)
		}
		seen[name] = true
	}
}

func TestGenerate_NoExtension(t *testing.T) {
	name := Generate("README", Options{Type: models.TypeMainFile})

	if strings.Contains(name, ".") {
		t.Errorf("Expected no extension, got %s", name)
	}
	if !strings.HasPrefix(name, "readme_mf") {
		t.Errorf("Expected slugged base, got %s", name)
	}
}
