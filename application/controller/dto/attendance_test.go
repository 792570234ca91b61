package dto

import (
	"encoding/base64"
	"testing"

	"rollcall.io/application/utils"
	"rollcall.io/infrastructure/validator"
)

func validImage() string {
	return base64.StdEncoding.EncodeToString([]byte("jpeg bytes"))
}

func TestValidatePredictAttendanceDTO(t *testing.T) {
	tests := []struct {
		name    string
		body    PredictAttendanceDTO
		wantErr bool
	}{
		{
			name:    "no images",
			body:    PredictAttendanceDTO{},
			wantErr: true,
		},
		{
			name: "image is not base64",
			body: PredictAttendanceDTO{
				Images: []string{"%%% not base64 %%%"},
			},
			wantErr: true,
		},
		{
			name: "threshold out of range",
			body: PredictAttendanceDTO{
				Images:    []string{validImage()},
				Threshold: utils.GetFloat64Pointer(1.5),
			},
			wantErr: true,
		},
		{
			name: "student id with invalid characters",
			body: PredictAttendanceDTO{
				Images:           []string{validImage()},
				EligibleStudents: []string{"stu a"},
			},
			wantErr: true,
		},
		{
			name: "valid minimal request",
			body: PredictAttendanceDTO{
				Images: []string{validImage()},
			},
			wantErr: false,
		},
		{
			name: "valid full request",
			body: PredictAttendanceDTO{
				Images:           []string{validImage(), "data:image/jpeg;base64," + validImage()},
				EligibleStudents: []string{"STU-001", "STU_002"},
				Threshold:        utils.GetFloat64Pointer(0.6),
				Annotate:         true,
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validator.ValidatorInstance.ValidateStruct(tt.body)
			if (errs != nil) != tt.wantErr {
				t.Errorf("ValidateStruct() errors = %v, wantErr %v", errs, tt.wantErr)
			}
		})
	}
}

func TestValidateRefreshGalleryDTO(t *testing.T) {
	tests := []struct {
		name    string
		body    RefreshGalleryDTO
		wantErr bool
	}{
		{"empty roster", RefreshGalleryDTO{}, true},
		{"bad student id", RefreshGalleryDTO{StudentIDs: []string{"stu a"}}, true},
		{"valid", RefreshGalleryDTO{StudentIDs: []string{"STU-001", "STU-002"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validator.ValidatorInstance.ValidateStruct(tt.body)
			if (errs != nil) != tt.wantErr {
				t.Errorf("ValidateStruct() errors = %v, wantErr %v", errs, tt.wantErr)
			}
		})
	}
}

func TestValidateEnrollStudentDTO(t *testing.T) {
	tests := []struct {
		name    string
		body    EnrollStudentDTO
		wantErr bool
	}{
		{"missing student id", EnrollStudentDTO{Photos: []string{validImage()}}, true},
		{"no photos", EnrollStudentDTO{StudentID: "STU-001"}, true},
		{"valid", EnrollStudentDTO{StudentID: "STU-001", Photos: []string{validImage()}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validator.ValidatorInstance.ValidateStruct(tt.body)
			if (errs != nil) != tt.wantErr {
				t.Errorf("ValidateStruct() errors = %v, wantErr %v", errs, tt.wantErr)
			}
		})
	}
}
