package service

import (
	"errors"

	"github.com/prepwise/prepwise/internal/apperr"
	"github.com/prepwise/prepwise/internal/dto"
	"github.com/prepwise/prepwise/internal/repository"
	"github.com/rs/zerolog/log"
)

// completionPoints is awarded per completed interview.
const completionPoints = 50

type StatsService interface {
	RecordInterviewCompleted(userID uint) error
	GetUserStats(userID uint) (*dto.UserStatDTO, error)
}

type statsService struct {
	statsRepo repository.StatsRepository
}

func NewStatsService(statsRepo repository.StatsRepository) StatsService {
	return &statsService{statsRepo: statsRepo}
}

func (s *statsService) RecordInterviewCompleted(userID uint) error {
	if err := s.statsRepo.RecordCompletion(userID, completionPoints); err != nil {
		return err
	}
	log.Debug().Uint("userID", userID).Int("points", completionPoints).Msg("Completion recorded")
	return nil
}

// GetUserStats returns the user's aggregate counters. A user with no
// completed interviews gets zeroes rather than a 404.
func (s *statsService) GetUserStats(userID uint) (*dto.UserStatDTO, error) {
	stat, err := s.statsRepo.FindByUserID(userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return &dto.UserStatDTO{UserID: userID}, nil
		}
		return nil, err
	}
	return &dto.UserStatDTO{
		UserID:              stat.UserID,
		InterviewsCompleted: stat.InterviewsCompleted,
		TotalPoints:         stat.TotalPoints,
		LastActivityAt:      &stat.LastActivityAt,
	}, nil
}
