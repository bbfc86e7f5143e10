package service

import (
	"testing"

	"github.com/prepwise/prepwise/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGeneratedQuestions(t *testing.T) {
	raw := []byte(`{
		"questions": [
			{
				"question": "Explain Go's garbage collector.",
				"category": "runtime",
				"difficulty": "MEDIUM",
				"expectedAnswer": "Concurrent tri-color mark and sweep.",
				"evaluationCriteria": {
					"keyPoints": ["concurrent", "tri-color"],
					"commonMistakes": ["claiming stop-the-world only"],
					"bonusPoints": ["pacing"]
				}
			},
			{
				"question": "What is a goroutine?",
				"category": "concurrency",
				"difficulty": "EASY",
				"expectedAnswer": "A lightweight thread managed by the runtime.",
				"evaluationCriteria": {"keyPoints": [], "commonMistakes": [], "bonusPoints": []}
			}
		]
	}`)

	questions, err := parseGeneratedQuestions(raw, 2)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, "Explain Go's garbage collector.", questions[0].Question)
	assert.Equal(t, []string{"concurrent", "tri-color"}, questions[0].EvaluationCriteria.KeyPoints)
}

func TestParseGeneratedQuestionsEnforcesCount(t *testing.T) {
	raw := []byte(`{"questions":[{"question":"One?"}]}`)

	_, err := parseGeneratedQuestions(raw, 3)
	require.ErrorIs(t, err, apperr.ErrProviderInvalidResponse)
}

func TestParseGeneratedQuestionsRejectsMalformedJSON(t *testing.T) {
	_, err := parseGeneratedQuestions([]byte("not json"), 1)
	require.ErrorIs(t, err, apperr.ErrProviderInvalidResponse)
}

func TestParseGeneratedQuestionsRejectsEmptyPrompt(t *testing.T) {
	raw := []byte(`{"questions":[{"question":"  "}]}`)

	_, err := parseGeneratedQuestions(raw, 1)
	require.ErrorIs(t, err, apperr.ErrProviderInvalidResponse)
}

func TestClampScoreBoundsToScale(t *testing.T) {
	assert.Equal(t, 0.0, clampScore(-1))
	assert.Equal(t, 10.0, clampScore(12))
	assert.Equal(t, 7.3, clampScore(7.3))
}

func TestEvaluationResultOverallIsMean(t *testing.T) {
	r := EvaluationResult{Correctness: 9, Completeness: 6, Clarity: 6}
	assert.InDelta(t, 7.0, r.Overall(), 0.001)
}

func TestVoiceLanguageCode(t *testing.T) {
	assert.Equal(t, "en-US", voiceLanguageCode("en-US-Neural2-D"))
	assert.Equal(t, "vi-VN", voiceLanguageCode("vi-VN-Standard-A"))
	assert.Equal(t, "en-US", voiceLanguageCode("bogus"))
}

func TestRecognitionEncodingFromMIME(t *testing.T) {
	cases := map[string]string{
		"audio/webm": "WEBM_OPUS",
		"audio/ogg":  "WEBM_OPUS",
		"audio/wav":  "LINEAR16",
		"audio/mpeg": "MP3",
		"audio/mp4":  "MP3",
	}
	for mime, want := range cases {
		assert.Equal(t, want, recognitionEncoding(mime).String(), mime)
	}
	assert.Equal(t, "ENCODING_UNSPECIFIED", recognitionEncoding("application/pdf").String())
}
