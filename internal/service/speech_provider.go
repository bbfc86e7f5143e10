package service

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/prepwise/prepwise/internal/apperr"
	"github.com/rs/zerolog/log"
)

const defaultRecognitionLanguage = "en-US"

// recognitionEncoding maps an upload MIME type to the recognizer encoding.
// Sample rate is left unset so the recognizer reads it from the container
// header where the format carries one.
func recognitionEncoding(mimeType string) speechpb.RecognitionConfig_AudioEncoding {
	switch {
	case strings.Contains(mimeType, "webm"), strings.Contains(mimeType, "ogg"):
		return speechpb.RecognitionConfig_WEBM_OPUS
	case strings.Contains(mimeType, "wav"):
		return speechpb.RecognitionConfig_LINEAR16
	case strings.Contains(mimeType, "mpeg"), strings.Contains(mimeType, "mp3"),
		strings.Contains(mimeType, "mp4"), strings.Contains(mimeType, "m4a"):
		return speechpb.RecognitionConfig_MP3
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

func (s *aiProviderService) Transcribe(ctx context.Context, audio []byte, mimeType string) (*Transcript, error) {
	if s.speech == nil {
		return nil, fmt.Errorf("%w: speech client not initialized", apperr.ErrProviderUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, transcribeTimeout)
	defer cancel()

	req := &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   recognitionEncoding(mimeType),
			LanguageCode:               defaultRecognitionLanguage,
			EnableAutomaticPunctuation: true,
			Model:                      "latest_long",
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	}

	resp, err := s.speech.Recognize(ctx, req)
	if err != nil {
		return nil, mapProviderErr(err)
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("%w: recognizer returned no results", apperr.ErrProviderInvalidResponse)
	}

	transcript := &Transcript{Language: defaultRecognitionLanguage}
	var sb strings.Builder
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(strings.TrimSpace(result.Alternatives[0].Transcript))
		if result.LanguageCode != "" {
			transcript.Language = result.LanguageCode
		}
		// The end offset of the last result is the usable audio duration.
		if result.ResultEndTime != nil {
			transcript.DurationSeconds = result.ResultEndTime.AsDuration().Seconds()
		}
	}
	transcript.Text = sb.String()
	if transcript.Text == "" {
		return nil, fmt.Errorf("%w: empty transcript", apperr.ErrProviderInvalidResponse)
	}

	log.Debug().Int("audioBytes", len(audio)).Float64("duration", transcript.DurationSeconds).
		Msg("Audio transcribed")
	return transcript, nil
}

func (s *aiProviderService) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if s.tts == nil {
		return nil, fmt.Errorf("%w: text-to-speech client not initialized", apperr.ErrProviderUnavailable)
	}
	if voice == "" {
		voice = s.cfg.Provider.DefaultVoice
	}

	ctx, cancel := context.WithTimeout(ctx, synthesizeTimeout)
	defer cancel()

	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: voiceLanguageCode(voice),
			Name:         voice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			SpeakingRate:  1.0,
		},
	}

	resp, err := s.tts.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, mapProviderErr(err)
	}
	if len(resp.AudioContent) == 0 {
		return nil, fmt.Errorf("%w: empty audio content", apperr.ErrProviderInvalidResponse)
	}
	return resp.AudioContent, nil
}

// voiceLanguageCode derives the language code from a full voice name such as
// "en-US-Neural2-D".
func voiceLanguageCode(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) >= 2 {
		return parts[0] + "-" + parts[1]
	}
	return defaultRecognitionLanguage
}
