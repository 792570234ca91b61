package dto

type PredictAttendanceDTO struct {
	Images           []string `json:"images" validate:"required,min=1,max=64,dive,base64image"`
	EligibleStudents []string `json:"eligibleStudents" validate:"omitempty,dive,student_id"`
	Threshold        *float64 `json:"threshold" validate:"omitempty,gt=0,lte=1"`
	Annotate         bool     `json:"annotate"`
}

type RefreshGalleryDTO struct {
	StudentIDs []string `json:"studentIDs" validate:"required,min=1,dive,student_id"`
}

type EnrollStudentDTO struct {
	StudentID string   `json:"studentID" validate:"required,student_id"`
	Photos    []string `json:"photos" validate:"required,min=1,max=10,dive,base64image"`
}
