package controller

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prepwise/prepwise/internal/dto"
	"github.com/prepwise/prepwise/internal/service"
	"github.com/rs/zerolog/log"
)

type AudioController struct {
	audioSvc service.AudioService
}

func NewAudioController(audioSvc service.AudioService) *AudioController {
	return &AudioController{audioSvc: audioSvc}
}

func (c *AudioController) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/interviews/:id/questions/:question_id/audio", c.UploadAnswerAudio)
	router.POST("/audio/synthesize", c.SynthesizeClip)
}

// UploadAnswerAudio godoc
// @Summary Upload an answer recording
// @Description Stores the recording and queues asynchronous transcription. Max 25 MB.
// @Tags Audio
// @Accept mpfd
// @Produce json
// @Param id path int true "Interview ID"
// @Param question_id path int true "Question ID"
// @Param audio formData file true "Audio file (mp3, wav, webm, m4a, ogg)"
// @Success 200 {object} dto.AudioUploadDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid or oversized audio"
// @Failure 404 {object} dto.ErrorResponse "Interview or question not found"
// @Failure 409 {object} dto.ErrorResponse "Interview is not in progress"
// @Router /interviews/{id}/questions/{question_id}/audio [post]
func (c *AudioController) UploadAnswerAudio(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	questionID, ok := pathID(ctx, "question_id")
	if !ok {
		return
	}

	fileHeader, err := ctx.FormFile("audio")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Missing audio file"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Cannot read audio file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Cannot read audio file"})
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	result, err := c.audioSvc.UploadAnswerAudio(ctx.Request.Context(), userID, id, questionID, data, contentType)
	if err != nil {
		log.Warn().Err(err).Uint("questionID", questionID).Msg("Audio upload rejected")
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// SynthesizeClip godoc
// @Summary Synthesize an ad-hoc speech clip
// @Tags Audio
// @Accept json
// @Produce json
// @Param request body dto.SynthesizeRequest true "Text to synthesize"
// @Success 200 {object} dto.AudioClipDTO
// @Failure 400 {object} dto.ErrorResponse "Validation failed"
// @Failure 502 {object} dto.ErrorResponse "Synthesis failed"
// @Router /audio/synthesize [post]
func (c *AudioController) SynthesizeClip(ctx *gin.Context) {
	if _, ok := currentUserID(ctx); !ok {
		return
	}

	var req dto.SynthesizeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	clip, err := c.audioSvc.SynthesizeClip(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, clip)
}
