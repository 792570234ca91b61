package enrollment

import (
	"errors"
	"fmt"
	"time"

	"rollcall.io/application/services/prediction"
	"rollcall.io/infrastructure/gallery"
	"rollcall.io/infrastructure/logger"
)

// Service builds a student's reference identity from their enrollment photos
// and publishes it to the gallery. It runs the same decode, detect, normalize
// and extract stages the attendance pipeline uses, so reference vectors and
// attendance vectors come out of the same model.
type Service struct {
	Decoder    prediction.Decoder
	Detector   prediction.Detector
	Normalizer prediction.Normalizer
	Extractor  prediction.Extractor
	Gallery    *gallery.Store
}

// Enroll extracts one embedding per usable photo and saves the resulting
// record. Photos with no detectable face are skipped; when a photo contains
// several faces the highest-confidence one is taken as the subject.
func (s *Service) Enroll(studentID string, photos [][]byte) (int, error) {
	if studentID == "" {
		return 0, errors.New("enrollment needs a student id")
	}
	if len(photos) == 0 {
		return 0, errors.New("enrollment needs at least one photo")
	}

	var vectors [][]float32
	for i, photo := range photos {
		vector, err := s.extractReference(photo)
		if err != nil {
			logger.Warning("enrollment photo skipped", logger.LoggerOptions{
				Key:  "student_id",
				Data: studentID,
			}, logger.LoggerOptions{
				Key:  "photo",
				Data: i,
			}, logger.LoggerOptions{
				Key:  "error",
				Data: err,
			})
			continue
		}
		vectors = append(vectors, vector)
	}

	if len(vectors) == 0 {
		return 0, fmt.Errorf("none of the %d photos produced a usable face", len(photos))
	}

	err := s.Gallery.Save(gallery.Record{
		StudentID:   studentID,
		Vectors:     vectors,
		RefreshedAt: time.Now(),
	})
	if err != nil {
		return 0, err
	}

	logger.Info("student enrolled", logger.LoggerOptions{
		Key:  "student_id",
		Data: studentID,
	}, logger.LoggerOptions{
		Key:  "vectors",
		Data: len(vectors),
	})
	return len(vectors), nil
}

func (s *Service) extractReference(photo []byte) ([]float32, error) {
	img, err := s.Decoder.Decode(photo)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	faces, err := s.Detector.Detect(img)
	if err != nil {
		return nil, err
	}
	if len(faces) == 0 {
		return nil, errors.New("no face detected")
	}

	best := faces[0]
	for _, face := range faces[1:] {
		if face.Confidence > best.Confidence {
			best = face
		}
	}

	tensor, err := s.Normalizer.Normalize(img, best.Box)
	if err != nil {
		return nil, err
	}
	defer tensor.Close()

	return s.Extractor.Extract(tensor)
}
