package types

import "time"

// HTTPConfig holds shared HTTP settings for clients of external services.
type HTTPConfig struct {
	// Timeout is the HTTP client timeout. Zero keeps the client default
	// (no timeout); cancellation then comes from the caller's context.
	Timeout time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `mapstructure:"user_agent" json:"user_agent" yaml:"user_agent"`
}

// ExtractionConfig holds settings for the document-parse client.
type ExtractionConfig struct {
	HTTPConfig `mapstructure:",squash" yaml:",inline"`

	// BaseURL is the document-parse endpoint.
	BaseURL string `mapstructure:"base_url" json:"base_url" yaml:"base_url"`

	// APIKeySecret names the secret holding the bearer token.
	APIKeySecret string `mapstructure:"api_key_secret" json:"api_key_secret" yaml:"api_key_secret"`

	// MaxRetries enables bounded retry on 429/5xx. Zero disables retry.
	MaxRetries int `mapstructure:"max_retries" json:"max_retries" yaml:"max_retries"`
}

// RefineMode selects how the agent receives the extracted text.
type RefineMode string

const (
	// ModeDirect inlines the extracted text in the prompt.
	ModeDirect RefineMode = "direct"

	// ModeTool lets the model call the document_parser tool itself.
	ModeTool RefineMode = "tool"
)

// BackendName identifies the refinement model provider.
type BackendName string

const (
	BackendOpenAI BackendName = "openai"
	BackendClaude BackendName = "claude"
	BackendGemini BackendName = "gemini"
)

// AIConfig holds settings shared by the model backends.
type AIConfig struct {
	HTTPConfig `mapstructure:",squash" yaml:",inline"`

	// Model is the provider model identifier (e.g. "gpt-4o"). Empty uses
	// the backend default.
	Model string `mapstructure:"model" json:"model" yaml:"model"`

	// APIKeySecret names the secret holding the provider key. Empty uses
	// the backend default.
	APIKeySecret string `mapstructure:"api_key_secret" json:"api_key_secret" yaml:"api_key_secret"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `mapstructure:"base_url" json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Temperature is the sampling temperature.
	Temperature float64 `mapstructure:"temperature" json:"temperature" yaml:"temperature"`

	// MaxTokens caps the length of the refined document.
	MaxTokens int `mapstructure:"max_tokens" json:"max_tokens" yaml:"max_tokens"`
}

// RefineConfig holds settings for the refinement stage.
type RefineConfig struct {
	AIConfig `mapstructure:",squash" yaml:",inline"`

	// Backend selects openai, claude, or gemini.
	Backend BackendName `mapstructure:"backend" json:"backend" yaml:"backend"`

	// Mode selects direct or tool-augmented refinement.
	Mode RefineMode `mapstructure:"mode" json:"mode" yaml:"mode"`

	// TargetLanguage is a BCP 47 tag or English language name used when a
	// request asks for translation.
	TargetLanguage string `mapstructure:"target_language" json:"target_language" yaml:"target_language"`

	// MaxToolTurns bounds model/tool round-trips within one attempt.
	MaxToolTurns int `mapstructure:"max_tool_turns" json:"max_tool_turns" yaml:"max_tool_turns"`

	// VerifyLanguage logs a warning when translated output is detected in
	// a different language.
	VerifyLanguage bool `mapstructure:"verify_language" json:"verify_language" yaml:"verify_language"`
}

// ServerConfig holds settings for the HTTP host.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr" json:"addr" yaml:"addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout" yaml:"request_timeout"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes" json:"max_upload_bytes" yaml:"max_upload_bytes"`
}

// FeedbackConfig holds settings for the feedback side-channel.
type FeedbackConfig struct {
	// DBPath is the SQLite file for stored feedback. Empty disables the store.
	DBPath string `mapstructure:"db_path" json:"db_path" yaml:"db_path"`

	// TelegramTokenSecret names the secret holding the bot token.
	TelegramTokenSecret string `mapstructure:"telegram_token_secret" json:"telegram_token_secret" yaml:"telegram_token_secret"`

	// TelegramChatID is the chat receiving feedback. Zero disables Telegram.
	TelegramChatID int64 `mapstructure:"telegram_chat_id" json:"telegram_chat_id" yaml:"telegram_chat_id"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level" yaml:"level"`
	Format string `mapstructure:"format" json:"format" yaml:"format"`
}

// SecretsConfig locates the secret sources.
type SecretsConfig struct {
	Dir     string `mapstructure:"dir" json:"dir" yaml:"dir"`
	EnvFile string `mapstructure:"env_file" json:"env_file" yaml:"env_file"`
}

// Config groups all settings for the CLI and HTTP host.
type Config struct {
	Extraction ExtractionConfig `mapstructure:"extraction" json:"extraction" yaml:"extraction"`
	Refine     RefineConfig     `mapstructure:"refine" json:"refine" yaml:"refine"`
	Server     ServerConfig     `mapstructure:"server" json:"server" yaml:"server"`
	Feedback   FeedbackConfig   `mapstructure:"feedback" json:"feedback" yaml:"feedback"`
	Log        LogConfig        `mapstructure:"log" json:"log" yaml:"log"`
	Secrets    SecretsConfig    `mapstructure:"secrets" json:"secrets" yaml:"secrets"`
}

// DefaultRequirements mirrors the default text of the original upload form:
// fix only the formatting and drop school names, copyright notices and page
// numbers unrelated to the lecture.
const DefaultRequirements = "Do not change the content; only correct the formatting.\n" +
	"Ignore school names, copyright notices, page numbers and other text unrelated to the lecture content."

// DefaultConfig returns the configuration used when no file or flag
// overrides a value.
func DefaultConfig() Config {
	return Config{
		Extraction: ExtractionConfig{
			BaseURL:      "https://api.upstage.ai/v1/document-ai/document-parse",
			APIKeySecret: "UPSTAGE_API_KEY",
		},
		Refine: RefineConfig{
			// Model and APIKeySecret are left empty so that each backend
			// applies its own (gpt-4o and OPENAI_API_KEY for openai).
			AIConfig: AIConfig{
				Temperature: 0.3,
				MaxTokens:   16384,
			},
			Backend:        BackendOpenAI,
			Mode:           ModeDirect,
			TargetLanguage: "ko",
			MaxToolTurns:   4,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			RequestTimeout: 10 * time.Minute,
			MaxUploadBytes: 50 << 20,
		},
		Feedback: FeedbackConfig{
			DBPath:              "out/feedback.db",
			TelegramTokenSecret: "TELEGRAM_BOT_TOKEN",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Secrets: SecretsConfig{
			Dir:     ".secrets/",
			EnvFile: ".env",
		},
	}
}
