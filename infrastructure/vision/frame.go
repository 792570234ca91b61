package vision

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
	prediction "rollcall.io/application/services/prediction"
)

// Frame wraps a decoded BGR pixel matrix. It satisfies the pipeline's Image
// interface and keeps the gocv dependency inside this package.
type Frame struct {
	mat gocv.Mat
}

func (f *Frame) Width() int {
	return f.mat.Cols()
}

func (f *Frame) Height() int {
	return f.mat.Rows()
}

func (f *Frame) Close() {
	f.mat.Close()
}

// AnnotateJPEG renders detection overlays onto a copy of the frame: green
// boxes with identity labels for accepted matches, red for unknowns.
func (f *Frame) AnnotateJPEG(faces []prediction.DetectedFace, labels []string) ([]byte, error) {
	if len(faces) != len(labels) {
		return nil, fmt.Errorf("got %d faces but %d labels", len(faces), len(labels))
	}

	canvas := f.mat.Clone()
	defer canvas.Close()

	matched := color.RGBA{G: 255}
	unknown := color.RGBA{R: 255}
	for i, face := range faces {
		rect := image.Rect(face.Box.X1, face.Box.Y1, face.Box.X2, face.Box.Y2)
		tint := matched
		if labels[i] == prediction.UnknownStudent {
			tint = unknown
		}
		gocv.Rectangle(&canvas, rect, tint, 2)
		gocv.PutText(&canvas, labels[i], image.Pt(face.Box.X1, face.Box.Y1-10),
			gocv.FontHersheySimplex, 0.5, tint, 2)
	}

	buf, err := gocv.IMEncode(".jpg", canvas)
	if err != nil {
		return nil, fmt.Errorf("failed to encode annotated image: %w", err)
	}
	defer buf.Close()

	encoded := make([]byte, len(buf.GetBytes()))
	copy(encoded, buf.GetBytes())
	return encoded, nil
}

func frameOf(img prediction.Image) (*Frame, bool) {
	frame, ok := img.(*Frame)
	return frame, ok
}
