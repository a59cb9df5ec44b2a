package config

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Config holds the project config values
type Config struct {
	URL           string
	DatabaseName  string
	RedisURL      string
	BaseURL       string
	Port          string
	JWTSecret     string
	LLMBaseURL    string
	LLMModel      string
	LLMAPIKey     string
	ChatDuration  time.Duration
	ConfirmWindow time.Duration
	QueueMode     string
}

// New sets up all config related services
func New() *Config {

	//setup zap logger and replace default logger
	logger := zap.NewExample()
	defer logger.Sync()
	_ = zap.ReplaceGlobals(logger)

	return &Config{
		URL:           os.Getenv("DB_URI"),
		DatabaseName:  os.Getenv("DB_NAME"),
		RedisURL:      os.Getenv("REDIS_URL"),
		BaseURL:       os.Getenv("BASE_URL"),
		Port:          os.Getenv("PORT"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		LLMBaseURL:    os.Getenv("LLM_BASE_URL"),
		LLMModel:      os.Getenv("LLM_MODEL"),
		LLMAPIKey:     os.Getenv("LLM_API_KEY"),
		ChatDuration:  secondsEnv("CHAT_DURATION_SECONDS", 300),
		ConfirmWindow: secondsEnv("CONFIRM_WINDOW_SECONDS", 60),
		QueueMode:     os.Getenv("QUEUE_MODE"),
	}

}

// secondsEnv reads an integer seconds env var, falling back to def when the
// var is unset or malformed
func secondsEnv(key string, def int) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(def) * time.Second
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		zap.S().Warnf("invalid %v=%q, using default of %vs", key, v, def)
		return time.Duration(def) * time.Second
	}
	return time.Duration(n) * time.Second
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().With(err).Error(message)
	w.WriteHeader(httpStatusCode)
	w.Write([]byte(fmt.Sprintf(`{"response": "%s, %v"}`, message, err)))
}
