package dbconnection

import (
	"fmt"
	"log/slog"

	"github.com/amirhossein5/efl/attendance/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the SQLite journal at path and migrates its tables.
func Open(path string) (*gorm.DB, error) {
	slog.Info("initializing database connection...", "path", path)

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	err = db.AutoMigrate(&models.AttendanceLog{})
	if err != nil {
		return nil, fmt.Errorf("%w in attendance_logs table", err)
	}
	err = db.AutoMigrate(&models.EnrolledFace{})
	if err != nil {
		return nil, fmt.Errorf("%w in enrolled_faces table", err)
	}

	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
