package config

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server   Server
	Database Database
	Provider Provider
	S3       S3
}

type Server struct {
	Port string
}

type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// Provider holds credentials for the AI capabilities: Gemini for question
// generation/evaluation/feedback, Google Cloud Speech-to-Text and
// Text-to-Speech for the audio pipeline.
type Provider struct {
	GeminiAPIKey      string
	GeminiModel       string
	GoogleCredentials string // path to a service-account file; ADC when empty
	DefaultVoice      string
}

type S3 struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
}

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	viper.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	viper.SetDefault("TTS_DEFAULT_VOICE", "en-US-Neural2-D")
	viper.SetDefault("S3_REGION", "us-east-1")
	viper.SetDefault("S3_BUCKET", "prepwise-audio")

	var config Config

	config.Server.Port = viper.GetString("SERVER_PORT")
	config.Database.Host = viper.GetString("DATABASE_HOST")
	config.Database.Port = viper.GetString("DATABASE_PORT")
	config.Database.User = viper.GetString("DATABASE_USER")
	config.Database.Password = viper.GetString("DATABASE_PASSWORD")
	config.Database.Name = viper.GetString("DATABASE_NAME")

	config.Provider.GeminiAPIKey = viper.GetString("GEMINI_API_KEY")
	config.Provider.GeminiModel = viper.GetString("GEMINI_MODEL")
	config.Provider.GoogleCredentials = viper.GetString("GOOGLE_APPLICATION_CREDENTIALS")
	config.Provider.DefaultVoice = viper.GetString("TTS_DEFAULT_VOICE")

	config.S3.Endpoint = viper.GetString("S3_ENDPOINT")
	config.S3.Region = viper.GetString("S3_REGION")
	config.S3.Bucket = viper.GetString("S3_BUCKET")
	config.S3.AccessKeyID = viper.GetString("S3_ACCESS_KEY_ID")
	config.S3.SecretAccessKey = viper.GetString("S3_SECRET_ACCESS_KEY")
	config.S3.ForcePathStyle = viper.GetBool("S3_FORCE_PATH_STYLE")

	log.Info().Str("port", config.Server.Port).Str("db", config.Database.Name).Msg("Config loaded")
	return &config, nil
}
