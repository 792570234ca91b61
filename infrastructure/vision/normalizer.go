package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
	prediction "rollcall.io/application/services/prediction"
)

// Crops get padded by 20% on each side before clamping; faces smaller than
// 32px in either dimension are too small to embed reliably.
const (
	cropPaddingRatio = 0.2
	minFacePixels    = 32
)

// FaceMat is one normalized grayscale face at the embedding model's input
// resolution.
type FaceMat struct {
	mat gocv.Mat
}

func (f *FaceMat) Close() {
	f.mat.Close()
}

// FaceNormalizer shapes a detected face crop into the fixed tensor the
// embedding model expects: padded crop clamped to image bounds, grayscale,
// histogram-equalized, resized to faceSize².
type FaceNormalizer struct {
	faceSize int
}

func NewFaceNormalizer(faceSize int) *FaceNormalizer {
	return &FaceNormalizer{faceSize: faceSize}
}

func (n *FaceNormalizer) Normalize(img prediction.Image, box prediction.Box) (prediction.FaceTensor, error) {
	frame, ok := frameOf(img)
	if !ok {
		return nil, &prediction.NormalizationError{Reason: "unsupported input image type"}
	}
	if box.Empty() {
		return nil, &prediction.NormalizationError{Reason: "zero-area bounding box"}
	}

	rect := paddedRect(box, frame.mat.Cols(), frame.mat.Rows())
	if rect.Dx() < minFacePixels || rect.Dy() < minFacePixels {
		return nil, &prediction.NormalizationError{
			Reason: fmt.Sprintf("face crop too small (%dx%d)", rect.Dx(), rect.Dy()),
		}
	}

	region := frame.mat.Region(rect)
	defer region.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(region, &gray, gocv.ColorBGRToGray)

	equalized := gocv.NewMat()
	defer equalized.Close()
	gocv.EqualizeHist(gray, &equalized)

	resized := gocv.NewMat()
	gocv.Resize(equalized, &resized, image.Pt(n.faceSize, n.faceSize), 0, 0, gocv.InterpolationCubic)

	return &FaceMat{mat: resized}, nil
}

// paddedRect grows the box by the padding ratio and clamps it to the image
// bounds.
func paddedRect(box prediction.Box, imgWidth, imgHeight int) image.Rectangle {
	padX := int(float64(box.Width()) * cropPaddingRatio)
	padY := int(float64(box.Height()) * cropPaddingRatio)

	x1 := max(0, box.X1-padX)
	y1 := max(0, box.Y1-padY)
	x2 := min(imgWidth, box.X2+padX)
	y2 := min(imgHeight, box.Y2+padY)

	if x2 < x1 {
		x2 = x1
	}
	if y2 < y1 {
		y2 = y1
	}
	return image.Rect(x1, y1, x2, y2)
}
