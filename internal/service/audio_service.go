package service

import (
	"context"
	"fmt"

	"github.com/prepwise/prepwise/internal/apperr"
	"github.com/prepwise/prepwise/internal/dto"
	"github.com/prepwise/prepwise/internal/model"
	"github.com/prepwise/prepwise/internal/queue"
	"github.com/prepwise/prepwise/internal/repository"
	"github.com/rs/zerolog/log"
)

const maxAudioUploadSize = 25 << 20 // 25 MB

var allowedAudioTypes = map[string]bool{
	"audio/mpeg":  true,
	"audio/wav":   true,
	"audio/webm":  true,
	"audio/mp4":   true,
	"audio/x-m4a": true,
	"audio/ogg":   true,
}

// AudioService handles answer-audio uploads and ad-hoc speech synthesis.
type AudioService interface {
	// UploadAnswerAudio stores the recording, attaches it to the question and
	// queues asynchronous transcription.
	UploadAnswerAudio(ctx context.Context, userID, interviewID, questionID uint, data []byte, contentType string) (*dto.AudioUploadDTO, error)
	SynthesizeClip(ctx context.Context, req dto.SynthesizeRequest) (*dto.AudioClipDTO, error)
}

type audioService struct {
	interviewRepo repository.InterviewRepository
	questionRepo  repository.QuestionRepository
	provider      AIProviderService
	storage       StorageService
	jobs          JobEnqueuer
}

func NewAudioService(
	interviewRepo repository.InterviewRepository,
	questionRepo repository.QuestionRepository,
	provider AIProviderService,
	storage StorageService,
	jobs JobEnqueuer,
) AudioService {
	return &audioService{
		interviewRepo: interviewRepo,
		questionRepo:  questionRepo,
		provider:      provider,
		storage:       storage,
		jobs:          jobs,
	}
}

func (s *audioService) UploadAnswerAudio(ctx context.Context, userID, interviewID, questionID uint, data []byte, contentType string) (*dto.AudioUploadDTO, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty audio upload", apperr.ErrValidation)
	}
	if len(data) > maxAudioUploadSize {
		return nil, fmt.Errorf("%w: audio exceeds %d MB limit", apperr.ErrValidation, maxAudioUploadSize>>20)
	}
	if !allowedAudioTypes[contentType] {
		return nil, fmt.Errorf("%w: unsupported audio type %q", apperr.ErrValidation, contentType)
	}

	interview, err := s.interviewRepo.FindByIDAndUser(interviewID, userID)
	if err != nil {
		return nil, err
	}
	if interview.Status != model.StatusInProgress {
		return nil, fmt.Errorf("%w: cannot upload audio in status %s", apperr.ErrInvalidState, interview.Status)
	}

	question, err := s.questionRepo.FindByIDInInterview(questionID, interviewID)
	if err != nil {
		return nil, err
	}

	result, err := s.storage.Upload(ctx, data, contentType, "interviews")
	if err != nil {
		return nil, err
	}

	question.UserAudioURL = &result.URL
	question.UserAudioKey = &result.Key
	if err := s.questionRepo.SaveUserAudio(question); err != nil {
		return nil, err
	}

	queued := true
	_, err = s.jobs.Enqueue(ctx, queue.KindTranscription,
		queue.TranscriptionPayload{QuestionID: question.ID},
		queue.DedupeKey(queue.KindTranscription, question.ID))
	if err != nil {
		// The recording is stored either way; the client can retry or submit
		// a typed answer.
		log.Error().Err(err).Uint("questionID", question.ID).Msg("Failed to enqueue transcription job")
		queued = false
	}

	log.Info().Uint("questionID", question.ID).Int64("size", result.Size).
		Str("contentType", contentType).Msg("Answer audio uploaded")

	return &dto.AudioUploadDTO{
		QuestionID: question.ID,
		URL:        result.URL,
		Size:       result.Size,
		Queued:     queued,
	}, nil
}

func (s *audioService) SynthesizeClip(ctx context.Context, req dto.SynthesizeRequest) (*dto.AudioClipDTO, error) {
	audio, err := s.provider.Synthesize(ctx, req.Text, req.Voice)
	if err != nil {
		return nil, err
	}

	result, err := s.storage.Upload(ctx, audio, "audio/mpeg", "clips")
	if err != nil {
		return nil, err
	}
	return &dto.AudioClipDTO{AudioURL: result.URL, Size: result.Size}, nil
}
