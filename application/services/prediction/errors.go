package prediction

import (
	"errors"
	"fmt"
)

// DecodeError means the image bytes could not be turned into a pixel matrix.
// Per-image and non-fatal to the batch.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("image decode failed: %s", e.Reason)
}

// DetectionError means the detection model could not run on this input.
// Recoverable once via the fallback detector.
type DetectionError struct {
	Detector string
	Reason   string
	Cause    error
}

func (e *DetectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("face detection failed (%s): %s: %v", e.Detector, e.Reason, e.Cause)
	}
	return fmt.Sprintf("face detection failed (%s): %s", e.Detector, e.Reason)
}

func (e *DetectionError) Unwrap() error {
	return e.Cause
}

// NormalizationError means one face crop was degenerate or too small. Drops
// that face only.
type NormalizationError struct {
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("face normalization failed: %s", e.Reason)
}

// ExtractionError means the embedding model could not run. Recoverable once
// via the degraded extractor.
type ExtractionError struct {
	Extractor string
	Reason    string
	Cause     error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("embedding extraction failed (%s): %s: %v", e.Extractor, e.Reason, e.Cause)
	}
	return fmt.Sprintf("embedding extraction failed (%s): %s", e.Extractor, e.Reason)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// GalleryMissingError means no gallery was loaded when a lookup was
// attempted. This is a precondition violation and aborts the whole request.
type GalleryMissingError struct{}

func (e *GalleryMissingError) Error() string {
	return "no gallery loaded: nothing to match against"
}

// TimeoutError marks image tasks cut off by the session time budget.
type TimeoutError struct{}

func (e *TimeoutError) Error() string {
	return "session time budget exceeded"
}

// Error kinds used in diagnostics entries and log fields.
const (
	KindDecode         = "decode_error"
	KindDetection      = "detection_error"
	KindNormalization  = "normalization_error"
	KindExtraction     = "extraction_error"
	KindGalleryMissing = "gallery_missing"
	KindTimeout        = "timeout"
	KindInternal       = "internal_error"
)

// Kind classifies an error into its diagnostics label.
func Kind(err error) string {
	var decodeErr *DecodeError
	var detectErr *DetectionError
	var normErr *NormalizationError
	var extractErr *ExtractionError
	var galleryErr *GalleryMissingError
	var timeoutErr *TimeoutError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &decodeErr):
		return KindDecode
	case errors.As(err, &detectErr):
		return KindDetection
	case errors.As(err, &normErr):
		return KindNormalization
	case errors.As(err, &extractErr):
		return KindExtraction
	case errors.As(err, &galleryErr):
		return KindGalleryMissing
	case errors.As(err, &timeoutErr):
		return KindTimeout
	default:
		return KindInternal
	}
}
