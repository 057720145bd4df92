package attendance

import (
	"errors"
	"time"

	"github.com/amirhossein5/efl/attendance/internal/models"
	"gorm.io/gorm"
)

// DBJournal mirrors fresh marks into the attendance_logs table.
type DBJournal struct {
	db        *gorm.DB
	sessionID string
}

func NewDBJournal(db *gorm.DB, sessionID string) *DBJournal {
	return &DBJournal{db: db, sessionID: sessionID}
}

func (j *DBJournal) Record(name string, at time.Time) error {
	attendanceLog := models.AttendanceLog{
		SessionID: j.sessionID,
		Name:      name,
		MarkedAt:  at,
	}
	err := j.db.Create(&attendanceLog).Error
	// The day file was edited by hand; the row from the earlier mark stays.
	if errors.Is(err, models.ErrAlreadyJournaled) {
		return nil
	}
	return err
}

// Logs returns the journaled marks of day ordered by time.
func (j *DBJournal) Logs(day time.Time) ([]models.AttendanceLog, error) {
	var logs []models.AttendanceLog
	err := j.db.Where("day = ?", day.Format(models.DayLayout)).Order("marked_at").Find(&logs).Error
	return logs, err
}
