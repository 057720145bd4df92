package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const DayLayout = "2006-01-02"

var ErrAlreadyJournaled = errors.New("attendance already journaled for this day")

// AttendanceLog mirrors one line of a daily attendance file.
type AttendanceLog struct {
	gorm.Model
	SessionID string `gorm:"index"`
	Name      string `gorm:"index:idx_attendance_day_name"`
	Day       string `gorm:"index:idx_attendance_day_name"`
	MarkedAt  time.Time
}

func (attendanceLog *AttendanceLog) BeforeCreate(tx *gorm.DB) error {
	if attendanceLog.MarkedAt.IsZero() {
		attendanceLog.MarkedAt = time.Now()
	}
	if attendanceLog.Day == "" {
		attendanceLog.Day = attendanceLog.MarkedAt.Format(DayLayout)
	}

	var todayNameLogsCount int64

	err := tx.Model(&AttendanceLog{}).Where("name = ?", attendanceLog.Name).Where("day = ?", attendanceLog.Day).Count(&todayNameLogsCount).Error
	if err != nil {
		return fmt.Errorf("AttendanceLog,BeforeCreate: %w", err)
	}

	if todayNameLogsCount > 0 {
		return fmt.Errorf("AttendanceLog,BeforeCreate: %s on %s: %w", attendanceLog.Name, attendanceLog.Day, ErrAlreadyJournaled)
	}

	return nil
}
