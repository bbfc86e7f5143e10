package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prepwise/prepwise/internal/dto"
	"github.com/prepwise/prepwise/internal/service"
	"github.com/rs/zerolog/log"
)

type InterviewController struct {
	interviewSvc service.InterviewService
}

func NewInterviewController(interviewSvc service.InterviewService) *InterviewController {
	return &InterviewController{interviewSvc: interviewSvc}
}

func (c *InterviewController) RegisterRoutes(router *gin.RouterGroup) {
	interviews := router.Group("/interviews")
	{
		interviews.POST("", c.CreateInterview)
		interviews.GET("", c.ListInterviews)
		interviews.GET("/:id", c.GetInterview)
		interviews.POST("/:id/start", c.StartInterview)
		interviews.POST("/:id/cancel", c.CancelInterview)
		interviews.GET("/:id/report", c.GetReport)
		interviews.DELETE("/:id", c.DeleteInterview)
		interviews.POST("/:id/questions/:question_id/answer", c.SubmitAnswer)
	}
}

// CreateInterview godoc
// @Summary Create a new interview session
// @Description Generates the question set for the requested role and stack and creates the session in DRAFT.
// @Tags Interviews
// @Accept json
// @Produce json
// @Param interview body dto.CreateInterviewRequest true "Interview parameters"
// @Success 201 {object} dto.InterviewDTO
// @Failure 400 {object} dto.ErrorResponse "Validation failed"
// @Failure 502 {object} dto.ErrorResponse "Question generation failed"
// @Router /interviews [post]
func (c *InterviewController) CreateInterview(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req dto.CreateInterviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	interview, err := c.interviewSvc.CreateInterview(ctx.Request.Context(), userID, req)
	if err != nil {
		log.Error().Err(err).Uint("userID", userID).Msg("CreateInterview failed")
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, interview)
}

// ListInterviews godoc
// @Summary List the caller's interviews
// @Tags Interviews
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(10)
// @Param status query string false "Filter by status"
// @Param type query string false "Filter by type"
// @Success 200 {object} dto.InterviewListDTO
// @Router /interviews [get]
func (c *InterviewController) ListInterviews(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var query dto.InterviewQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	list, err := c.interviewSvc.ListInterviews(userID, query)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, list)
}

// GetInterview godoc
// @Summary Get one interview with its questions and feedback
// @Tags Interviews
// @Produce json
// @Param id path int true "Interview ID"
// @Success 200 {object} dto.InterviewDTO
// @Failure 404 {object} dto.ErrorResponse "Interview not found"
// @Router /interviews/{id} [get]
func (c *InterviewController) GetInterview(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	interview, err := c.interviewSvc.GetInterview(userID, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, interview)
}

// StartInterview godoc
// @Summary Start a drafted interview
// @Description Moves the session from DRAFT to IN_PROGRESS. Only one start succeeds.
// @Tags Interviews
// @Produce json
// @Param id path int true "Interview ID"
// @Success 200 {object} dto.InterviewDTO
// @Failure 404 {object} dto.ErrorResponse "Interview not found"
// @Failure 409 {object} dto.ErrorResponse "Interview is not in DRAFT"
// @Router /interviews/{id}/start [post]
func (c *InterviewController) StartInterview(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	interview, err := c.interviewSvc.StartInterview(userID, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, interview)
}

// SubmitAnswer godoc
// @Summary Submit an answer for one question
// @Description Records the answer and queues asynchronous grading. Re-submission replaces a still-queued grading job.
// @Tags Interviews
// @Accept json
// @Produce json
// @Param id path int true "Interview ID"
// @Param question_id path int true "Question ID"
// @Param answer body dto.SubmitAnswerRequest true "Answer payload"
// @Success 200 {object} dto.QuestionDTO
// @Failure 404 {object} dto.ErrorResponse "Interview or question not found"
// @Failure 409 {object} dto.ErrorResponse "Interview is not in progress"
// @Router /interviews/{id}/questions/{question_id}/answer [post]
func (c *InterviewController) SubmitAnswer(ctx *gin.Context) {
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

	var req dto.SubmitAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	question, err := c.interviewSvc.SubmitAnswer(ctx.Request.Context(), userID, id, questionID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, question)
}

// CancelInterview godoc
// @Summary Cancel an in-progress interview
// @Tags Interviews
// @Produce json
// @Param id path int true "Interview ID"
// @Success 200 {object} dto.InterviewDTO
// @Failure 404 {object} dto.ErrorResponse "Interview not found"
// @Failure 409 {object} dto.ErrorResponse "Interview is not in progress"
// @Router /interviews/{id}/cancel [post]
func (c *InterviewController) CancelInterview(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	interview, err := c.interviewSvc.CancelInterview(userID, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, interview)
}

// GetReport godoc
// @Summary Get the final report for a completed interview
// @Tags Interviews
// @Produce json
// @Param id path int true "Interview ID"
// @Success 200 {object} dto.ReportDTO
// @Failure 404 {object} dto.ErrorResponse "Interview not found"
// @Failure 409 {object} dto.ErrorResponse "Interview is not completed"
// @Router /interviews/{id}/report [get]
func (c *InterviewController) GetReport(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	report, err := c.interviewSvc.GetReport(userID, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, report)
}

// DeleteInterview godoc
// @Summary Delete an interview and its stored audio
// @Tags Interviews
// @Produce json
// @Param id path int true "Interview ID"
// @Success 204 "Deleted"
// @Failure 404 {object} dto.ErrorResponse "Interview not found"
// @Router /interviews/{id} [delete]
func (c *InterviewController) DeleteInterview(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.interviewSvc.DeleteInterview(ctx.Request.Context(), userID, id); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}
