// Package validation sniffs uploaded content by magic bytes, so a renamed
// executable never enters an image or video pipeline.
package validation

import (
	"bytes"
	"io"
	"mime/multipart"

	"msfiles/models"
)

type FileKind string

const (
	KindPNG  FileKind = "png"
	KindJPEG FileKind = "jpeg"
	KindGIF  FileKind = "gif"
	KindWebp FileKind = "webp"
	KindBMP  FileKind = "bmp"
	KindTIFF FileKind = "tiff"
	KindMP4  FileKind = "mp4"
	KindWebm FileKind = "webm"
	KindAVI  FileKind = "avi"
	KindMKV  FileKind = "mkv"
)

type signature struct {
	kind   FileKind
	offset int
	magic  []byte
}

// Offsets matter: mp4 carries "ftyp" at byte 4, avi carries "AVI " at
// byte 8 inside a RIFF container.
var signatures = []signature{
	{KindPNG, 0, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	{KindJPEG, 0, []byte{0xFF, 0xD8, 0xFF}},
	{KindGIF, 0, []byte{0x47, 0x49, 0x46, 0x38}},
	{KindBMP, 0, []byte{0x42, 0x4D}},
	{KindTIFF, 0, []byte{0x49, 0x49, 0x2A, 0x00}},
	{KindTIFF, 0, []byte{0x4D, 0x4D, 0x00, 0x2A}},
	{KindWebp, 8, []byte{0x57, 0x45, 0x42, 0x50}},
	{KindMP4, 4, []byte{0x66, 0x74, 0x79, 0x70}},
	// Matroska and webm share the EBML header; ffprobe settles the real
	// container later.
	{KindWebm, 0, []byte{0x1A, 0x45, 0xDF, 0xA3}},
	{KindAVI, 8, []byte{0x41, 0x56, 0x49, 0x20}},
}

// DetectKind sniffs the first bytes of the file and rewinds it.
func DetectKind(file multipart.File) (FileKind, error) {
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", err
	}

	if _, err := file.Seek(0, 0); err != nil {
		return "", err
	}

	return DetectKindBytes(buffer[:n])
}

func DetectKindBytes(head []byte) (FileKind, error) {
	for _, sig := range signatures {
		end := sig.offset + len(sig.magic)
		if len(head) >= end && bytes.Equal(head[sig.offset:end], sig.magic) {
			return sig.kind, nil
		}
	}
	return "", ErrInvalidFileType
}

func IsImageKind(kind FileKind) bool {
	switch kind {
	case KindPNG, KindJPEG, KindGIF, KindWebp, KindBMP, KindTIFF:
		return true
	default:
		return false
	}
}

func IsVideoKind(kind FileKind) bool {
	switch kind {
	case KindMP4, KindWebm, KindAVI, KindMKV:
		return true
	default:
		return false
	}
}

// CheckKind verifies the sniffed kind against the requested upload action.
// Generic file uploads accept anything that sniffs at all or not.
func CheckKind(kind FileKind, action models.FileAction) error {
	switch action {
	case models.ActionUploadImage:
		if !IsImageKind(kind) {
			return ErrTypeMismatch
		}
	case models.ActionUploadVideo:
		if !IsVideoKind(kind) {
			return ErrTypeMismatch
		}
	}
	return nil
}
