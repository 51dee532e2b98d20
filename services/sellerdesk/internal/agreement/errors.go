package agreement

import "fmt"

// ValidationError reports a malformed or missing request field. It is
// surfaced before any generation work begins.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("agreement: invalid %s: %s", e.Field, e.Reason)
}

// AssetLoadError reports a missing or unreadable static signature asset.
// Fatal for signed-document generation; tolerated with a placeholder for
// the unsigned variant.
type AssetLoadError struct {
	Path string
	Err  error
}

func (e *AssetLoadError) Error() string {
	return fmt.Sprintf("agreement: load signature asset %s: %v", e.Path, e.Err)
}

func (e *AssetLoadError) Unwrap() error { return e.Err }

// ImageDecodeError reports an invalid submitted signature payload. Always
// non-fatal: generation falls back to a text marker.
type ImageDecodeError struct {
	Err error
}

func (e *ImageDecodeError) Error() string {
	return fmt.Sprintf("agreement: decode signature image: %v", e.Err)
}

func (e *ImageDecodeError) Unwrap() error { return e.Err }
