package validation

import (
	"errors"
	"testing"

	"msfiles/models"
)

func TestDetectKindBytes(t *testing.T) {
	cases := []struct {
		name string
		head []byte
		kind FileKind
	}{
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00}, KindPNG},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, KindJPEG},
		{"gif", []byte{0x47, 0x49, 0x46, 0x38, 0x39}, KindGIF},
		{"webp", append([]byte("RIFF\x00\x00\x00\x00"), []byte("WEBP")...), KindWebp},
		{"mp4", append([]byte{0x00, 0x00, 0x00, 0x18}, []byte("ftypmp42")...), KindMP4},
		{"webm", []byte{0x1A, 0x45, 0xDF, 0xA3, 0x01}, KindWebm},
		{"avi", append([]byte("RIFF\x00\x00\x00\x00"), []byte("AVI ")...), KindAVI},
	}

	for _, tc := range cases {
		kind, err := DetectKindBytes(tc.head)
		if err != nil {
			t.Errorf("%s: DetectKindBytes failed: %v", tc.name, err)
			continue
		}
		if kind != tc.kind {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.kind, kind)
		}
	}
}

func TestDetectKindBytes_Unknown(t *testing.T) {
	if _, err := DetectKindBytes([]byte("MZ\x90\x00")); !errors.Is(err, ErrInvalidFileType) {
		t.Fatalf("Expected ErrInvalidFileType, got %v", err)
	}
}

func TestDetectKindBytes_TooShort(t *testing.T) {
	if _, err := DetectKindBytes([]byte{0xFF}); !errors.Is(err, ErrInvalidFileType) {
		t.Fatalf("Expected ErrInvalidFileType, got %v", err)
	}
}

func TestCheckKind(t *testing.T) {
	if err := CheckKind(KindJPEG, models.ActionUploadImage); err != nil {
		t.Errorf("jpeg should pass image check: %v", err)
	}
	if err := CheckKind(KindMP4, models.ActionUploadVideo); err != nil {
		t.Errorf("mp4 should pass video check: %v", err)
	}
	if err := CheckKind(KindMP4, models.ActionUploadImage); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("mp4 must fail image check, got %v", err)
	}
	if err := CheckKind(KindJPEG, models.ActionUploadVideo); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("jpeg must fail video check, got %v", err)
	}
	if err := CheckKind(KindJPEG, models.ActionUploadFile); err != nil {
		t.Errorf("generic upload accepts anything, got %v", err)
	}
}
