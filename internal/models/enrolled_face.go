package models

import (
	"gorm.io/gorm"
)

// EnrolledFace records the outcome of loading one reference image.
type EnrolledFace struct {
	gorm.Model
	SessionID string `gorm:"index"`
	Name      string
	Path      string
	Status    string
	Detail    string
}
