package terrarium

import "fmt"

// SignatureError indicates the stream does not start with the raster signature.
type SignatureError struct {
	Got [len(Signature)]byte
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("terrarium: invalid signature %q", e.Got[:])
}

// VersionError indicates an unsupported format version.
type VersionError struct {
	Version uint8
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("terrarium: unknown version %d", e.Version)
}

// FormatError indicates an unsupported sample kind selector.
type FormatError struct {
	Kind uint8
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("terrarium: unknown format %d", e.Kind)
}

// SizeError indicates a raster or chunk too large to allocate.
type SizeError struct {
	Width, Height uint32
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("terrarium: %dx%d exceeds the sample limit", e.Width, e.Height)
}

// KindMismatchError is a precondition violation: two rasters of different sample
// kinds were combined.
type KindMismatchError struct {
	Src, Dst Kind
	Op       string
}

func (e *KindMismatchError) Error() string {
	return fmt.Sprintf("terrarium: %s: sample kind mismatch (%v into %v)", e.Op, e.Src, e.Dst)
}
