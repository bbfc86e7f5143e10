package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/prepwise/prepwise/internal/apperr"
	"github.com/prepwise/prepwise/internal/model"
	"gorm.io/gorm"
)

type StatsRepository interface {
	// RecordCompletion bumps the owner's counters by one interview and the
	// given points, creating the row on first completion.
	RecordCompletion(userID uint, points int) error
	FindByUserID(userID uint) (*model.UserStat, error)
}

type statsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) RecordCompletion(userID uint, points int) error {
	now := time.Now()
	res := r.db.Model(&model.UserStat{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"interviews_completed": gorm.Expr("interviews_completed + 1"),
			"total_points":         gorm.Expr("total_points + ?", points),
			"last_activity_at":     now,
		})
	if res.Error != nil {
		return fmt.Errorf("%w: update user stats: %v", apperr.ErrStorage, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	stat := model.UserStat{
		UserID:              userID,
		InterviewsCompleted: 1,
		TotalPoints:         points,
		LastActivityAt:      now,
	}
	if err := r.db.Create(&stat).Error; err != nil {
		// A racing first completion created the row; retry as an update.
		res := r.db.Model(&model.UserStat{}).
			Where("user_id = ?", userID).
			Updates(map[string]any{
				"interviews_completed": gorm.Expr("interviews_completed + 1"),
				"total_points":         gorm.Expr("total_points + ?", points),
				"last_activity_at":     now,
			})
		if res.Error != nil || res.RowsAffected == 0 {
			return fmt.Errorf("%w: record completion: %v", apperr.ErrStorage, err)
		}
	}
	return nil
}

func (r *statsRepository) FindByUserID(userID uint) (*model.UserStat, error) {
	var stat model.UserStat
	err := r.db.Where("user_id = ?", userID).First(&stat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user stats", apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: find user stats: %v", apperr.ErrStorage, err)
	}
	return &stat, nil
}
