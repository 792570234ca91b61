package prediction

// The pipeline stages are consumed through narrow interfaces so the
// orchestrator never touches the OpenCV types directly and each stage can be
// swapped for its degraded counterpart.

// Image is a decoded pixel matrix. Close releases the underlying buffer.
type Image interface {
	Width() int
	Height() int
	Close()
}

// FaceTensor is one normalized face ready for embedding extraction.
type FaceTensor interface {
	Close()
}

// Decoder turns raw image bytes into a pixel matrix.
type Decoder interface {
	Decode(data []byte) (Image, error)
}

// Detector finds faces in an image. Implementations discard boxes below
// their configured minimum confidence before returning.
type Detector interface {
	Name() string
	Detect(img Image) ([]DetectedFace, error)
}

// Normalizer crops one bounding box out of an image and shapes it into the
// tensor the embedding model expects.
type Normalizer interface {
	Normalize(img Image, box Box) (FaceTensor, error)
}

// Extractor maps a normalized face to a fixed-length embedding vector.
type Extractor interface {
	Name() string
	Extract(tensor FaceTensor) ([]float32, error)
}

// Annotator is optionally implemented by images that can render detection
// overlays for diagnostics.
type Annotator interface {
	AnnotateJPEG(faces []DetectedFace, labels []string) ([]byte, error)
}
