package vision

import (
	"gocv.io/x/gocv"
	prediction "rollcall.io/application/services/prediction"
)

// ImageDecoder turns raw bytes into a BGR pixel matrix.
type ImageDecoder struct{}

func NewImageDecoder() *ImageDecoder {
	return &ImageDecoder{}
}

func (d *ImageDecoder) Decode(data []byte) (prediction.Image, error) {
	if len(data) == 0 {
		return nil, &prediction.DecodeError{Reason: "zero-byte input"}
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, &prediction.DecodeError{Reason: err.Error()}
	}
	if mat.Empty() {
		mat.Close()
		return nil, &prediction.DecodeError{Reason: "unsupported or malformed image format"}
	}

	return &Frame{mat: mat}, nil
}
