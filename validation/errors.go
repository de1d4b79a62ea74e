package validation

import "errors"

var (
	ErrInvalidFileType = errors.New("invalid file type")
	ErrFileTooLarge    = errors.New("file size exceeds limit")
	ErrTypeMismatch    = errors.New("file content does not match requested upload kind")
)
