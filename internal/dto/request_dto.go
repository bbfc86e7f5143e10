package dto

// CreateInterviewRequest carries the parameters for a new interview session.
// Bounds follow the product rules: 10-180 minutes, 1-20 questions, at least
// one tech-stack entry.
type CreateInterviewRequest struct {
	Type            string   `json:"type" binding:"required,oneof=TECHNICAL BEHAVIORAL SYSTEM_DESIGN MOCK_FULL CUSTOM"`
	Role            string   `json:"role" binding:"required"`
	Company         *string  `json:"company"`
	ExperienceLevel string   `json:"experience_level" binding:"required"`
	TechStack       []string `json:"tech_stack" binding:"required,min=1,dive,required"`
	FocusAreas      []string `json:"focus_areas"`
	Duration        int      `json:"duration" binding:"required,min=10,max=180"`
	QuestionsCount  int      `json:"questions_count" binding:"required,min=1,max=20"`
	VoiceEnabled    *bool    `json:"voice_enabled"`
	TTSVoice        string   `json:"tts_voice"`
}

// SubmitAnswerRequest carries one answer for one question. The transcription
// field lets voice clients submit an already-transcribed answer; audio
// uploaded through the audio endpoint is transcribed asynchronously instead.
type SubmitAnswerRequest struct {
	UserAnswer    string  `json:"user_answer" binding:"required"`
	AudioURL      *string `json:"audio_url"`
	Transcription *string `json:"transcription"`
	TimeSpent     *int    `json:"time_spent" binding:"omitempty,min=0"`
}

// InterviewQuery filters and paginates the interview list.
type InterviewQuery struct {
	Page   int    `form:"page,default=1" binding:"omitempty,min=1"`
	Limit  int    `form:"limit,default=10" binding:"omitempty,min=1,max=50"`
	Status string `form:"status" binding:"omitempty,oneof=DRAFT IN_PROGRESS COMPLETED CANCELLED"`
	Type   string `form:"type" binding:"omitempty,oneof=TECHNICAL BEHAVIORAL SYSTEM_DESIGN MOCK_FULL CUSTOM"`
}

// SynthesizeRequest asks for an ad-hoc TTS clip.
type SynthesizeRequest struct {
	Text  string `json:"text" binding:"required,max=4096"`
	Voice string `json:"voice"`
}
