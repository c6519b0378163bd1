package services

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/leadcraft/leadcraft-backend/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Class{},
		&domain.GatewayChallenge{},
		&domain.Discovery{},
		&domain.DiscoveryVote{},
		&domain.TeacherChallenge{},
		&domain.ChallengeResponse{},
		&domain.WorldResource{},
		&domain.FeedEntry{},
		&domain.Secret{},
		&domain.DoNowCompletion{},
		&domain.ScenarioCompletion{},
		&domain.ChallengeSubmission{},
		&domain.HelpEvent{},
		&domain.Ripple{},
		&domain.OutboxJob{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// seedClass creates a class with its teacher and returns (classID, teacherID).
func seedClass(t *testing.T, db *gorm.DB) (string, string) {
	t.Helper()
	teacherID := uuid.NewString()
	classID := uuid.NewString()
	if err := db.Create(&domain.User{ID: teacherID, Role: domain.RoleTeacher, DisplayName: "Ms Rivera"}).Error; err != nil {
		t.Fatalf("seed teacher: %v", err)
	}
	if err := db.Create(&domain.Class{ID: classID, TeacherID: teacherID, Name: "Period 3"}).Error; err != nil {
		t.Fatalf("seed class: %v", err)
	}
	return classID, teacherID
}

// seedStudent creates a student in classID and returns its id.
func seedStudent(t *testing.T, db *gorm.DB, classID string) string {
	t.Helper()
	id := uuid.NewString()
	u := &domain.User{ID: id, Role: domain.RoleStudent, DisplayName: "Sam"}
	if classID != "" {
		u.ClassID = &classID
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed student: %v", err)
	}
	return id
}

// at builds a UTC timestamp for journal fixtures.
func at(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
}
