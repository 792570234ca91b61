package enrollment

import (
	"testing"
	"time"

	"rollcall.io/application/services/prediction"
	"rollcall.io/infrastructure/gallery"
)

type stubImage struct{}

func (s *stubImage) Width() int  { return 640 }
func (s *stubImage) Height() int { return 480 }
func (s *stubImage) Close()      {}

type stubTensor struct{}

func (s *stubTensor) Close() {}

type stubDecoder struct{}

func (d *stubDecoder) Decode(data []byte) (prediction.Image, error) {
	if string(data) == "bad" {
		return nil, &prediction.DecodeError{Reason: "unreadable bytes"}
	}
	return &stubImage{}, nil
}

type stubDetector struct {
	faces []prediction.DetectedFace
}

func (d *stubDetector) Name() string { return "stub" }

func (d *stubDetector) Detect(img prediction.Image) ([]prediction.DetectedFace, error) {
	return d.faces, nil
}

type stubNormalizer struct{}

func (n *stubNormalizer) Normalize(img prediction.Image, box prediction.Box) (prediction.FaceTensor, error) {
	return &stubTensor{}, nil
}

type stubExtractor struct {
	vector []float32
}

func (e *stubExtractor) Name() string { return "stub" }

func (e *stubExtractor) Extract(tensor prediction.FaceTensor) ([]float32, error) {
	return e.vector, nil
}

func newTestService(t *testing.T, faces []prediction.DetectedFace) (*Service, *gallery.Store) {
	t.Helper()
	store := gallery.NewStore(t.TempDir(), 3)
	return &Service{
		Decoder:    &stubDecoder{},
		Detector:   &stubDetector{faces: faces},
		Normalizer: &stubNormalizer{},
		Extractor:  &stubExtractor{vector: []float32{1, 0, 0}},
		Gallery:    store,
	}, store
}

func oneFace(confidence float32) []prediction.DetectedFace {
	return []prediction.DetectedFace{
		{Box: prediction.Box{X1: 0, Y1: 0, X2: 40, Y2: 40}, Confidence: confidence},
	}
}

func TestEnrollPublishesGalleryRecord(t *testing.T) {
	service, store := newTestService(t, oneFace(0.9))

	vectors, err := service.Enroll("STU-001", [][]byte{[]byte("photo1"), []byte("photo2")})
	if err != nil {
		t.Fatalf("Enroll() error = %v", err)
	}
	if vectors != 2 {
		t.Errorf("Enroll() vectors = %d, want 2", vectors)
	}

	entries, err := store.LookupAll()
	if err != nil {
		t.Fatalf("LookupAll() error = %v", err)
	}
	if len(entries) != 1 || entries[0].StudentID != "STU-001" {
		t.Fatalf("gallery entries = %+v, want STU-001", entries)
	}
	if time.Since(entries[0].RefreshedAt) > time.Minute {
		t.Error("enrolled entry carries a stale RefreshedAt")
	}
}

func TestEnrollSkipsUnusablePhotos(t *testing.T) {
	service, _ := newTestService(t, oneFace(0.9))

	vectors, err := service.Enroll("STU-001", [][]byte{[]byte("bad"), []byte("photo")})
	if err != nil {
		t.Fatalf("Enroll() error = %v", err)
	}
	if vectors != 1 {
		t.Errorf("Enroll() vectors = %d, want 1: undecodable photo must be skipped", vectors)
	}
}

func TestEnrollFailsWhenNothingUsable(t *testing.T) {
	service, _ := newTestService(t, nil) // detector finds no faces

	if _, err := service.Enroll("STU-001", [][]byte{[]byte("photo")}); err == nil {
		t.Error("Enroll() should fail when no photo produces a face")
	}
}

func TestEnrollValidatesInput(t *testing.T) {
	service, _ := newTestService(t, oneFace(0.9))

	if _, err := service.Enroll("", [][]byte{[]byte("photo")}); err == nil {
		t.Error("Enroll() should reject an empty student id")
	}
	if _, err := service.Enroll("STU-001", nil); err == nil {
		t.Error("Enroll() should reject an empty photo set")
	}
}
