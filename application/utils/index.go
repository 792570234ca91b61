package utils

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

func GenerateULIDString() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.DefaultEntropy()).String()
}

func GetFloat64Pointer(data float64) *float64 {
	return &data
}

// DecodeBase64Image accepts both raw base64 payloads and data URLs
// ("data:image/jpeg;base64,...").
func DecodeBase64Image(payload string) ([]byte, error) {
	if payload == "" {
		return nil, errors.New("empty image payload")
	}
	if strings.HasPrefix(payload, "data:") {
		parts := strings.SplitN(payload, ",", 2)
		if len(parts) != 2 {
			return nil, errors.New("malformed data url")
		}
		payload = parts[1]
	}
	return base64.StdEncoding.DecodeString(payload)
}
