package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/prepwise/prepwise/internal/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&model.Interview{},
		&model.Question{},
		&model.InterviewFeedback{},
		&model.Job{},
		&model.UserStat{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func seedInterview(t *testing.T, db *gorm.DB, userID uint, status string, questions int) *model.Interview {
	t.Helper()
	interview := &model.Interview{
		UserID:          userID,
		Type:            model.InterviewTypeTechnical,
		Status:          status,
		Role:            "Backend Engineer",
		ExperienceLevel: "MID",
		TechStack:       []string{"Go", "Postgres"},
		Duration:        45,
		QuestionsCount:  questions,
	}
	for i := 0; i < questions; i++ {
		interview.Questions = append(interview.Questions, model.Question{
			Order:          i + 1,
			Prompt:         fmt.Sprintf("Question %d", i+1),
			Category:       "general",
			Difficulty:     model.DifficultyMedium,
			ExpectedAnswer: "Expected",
			GeneratedByAI:  true,
		})
	}
	if err := NewInterviewRepository(db).Create(interview); err != nil {
		t.Fatalf("failed to seed interview: %v", err)
	}
	return interview
}
