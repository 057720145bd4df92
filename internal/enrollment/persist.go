package enrollment

import (
	"fmt"

	"github.com/amirhossein5/efl/attendance/internal/models"
	"gorm.io/gorm"
)

// Save stores results as enrolled_faces rows tagged with sessionID.
func Save(db *gorm.DB, sessionID string, results []Result) error {
	if len(results) == 0 {
		return nil
	}

	rows := make([]models.EnrolledFace, 0, len(results))
	for _, res := range results {
		rows = append(rows, models.EnrolledFace{
			SessionID: sessionID,
			Name:      res.Name,
			Path:      res.Path,
			Status:    string(res.Status),
			Detail:    res.Detail(),
		})
	}

	if err := db.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to save enrollment results: %w", err)
	}
	return nil
}
