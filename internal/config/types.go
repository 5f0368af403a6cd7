package config

// Config is the whole homecmd configuration document.
//
// Every section is optional; Defaults fills in what a file leaves out.
type Config struct {
	Assistant AssistantConfig `json:"assistant"`
	Logging   LoggingConfig   `json:"logging"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Storage   StorageConfig   `json:"storage"`
	Query     QueryConfig     `json:"query"`
	Music     MusicConfig     `json:"music"`
	REPL      REPLConfig      `json:"repl"`
}

const (
	ModeCommand      = "command"
	ModeConversation = "conversation"
)

type AssistantConfig struct {
	// Mode is "command" (default) or "conversation". In conversation mode
	// every utterance is sent to the general-query responder.
	Mode string `json:"mode,omitempty"`
	// Timezone is an IANA name used for clock replies and "at" triggers.
	// Empty means the host's local zone.
	Timezone string `json:"timezone,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// SchedulerConfig controls the task scheduler.
//
// Example:
//
//	"scheduler": {
//	  "history_size": 64,
//	  "routines": [
//	    {"name": "morning", "cron": "0 7 * * 1-5", "command": "what is the date"}
//	  ]
//	}
type SchedulerConfig struct {
	HistorySize int             `json:"history_size,omitempty"`
	Routines    []RoutineConfig `json:"routines,omitempty"`
}

// RoutineConfig is one recurring command. Cron accepts a cron expression
// (seconds optional, descriptors like "@daily"), "every:<duration>" or a
// daily "HH:MM".
type RoutineConfig struct {
	Name    string `json:"name"`
	Cron    string `json:"cron"`
	Command string `json:"command"`
}

// StorageConfig selects the reminder store.
//
//	"storage": { "driver": "sqlite", "path": "./homecmd.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// QueryConfig configures the general-query responder. Any OpenAI compatible
// endpoint works; the API key is read from the environment variable named by
// APIKeyEnv and never stored in the file.
type QueryConfig struct {
	Enabled      bool    `json:"enabled"`
	BaseURL      string  `json:"base_url,omitempty"`
	Model        string  `json:"model,omitempty"`
	APIKeyEnv    string  `json:"api_key_env,omitempty"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
	MaxHistory   int     `json:"max_history,omitempty"` // past question/answer turns sent along
	Timeout      string  `json:"timeout,omitempty"`
	RatePerSec   float64 `json:"rate_per_sec,omitempty"`
}

type MusicConfig struct {
	DefaultVolume int `json:"default_volume"`
	VolumeStep    int `json:"volume_step,omitempty"`
}

type REPLConfig struct {
	Prompt      string `json:"prompt,omitempty"`
	HistoryFile string `json:"history_file,omitempty"`
}

const DefaultSystemPrompt = "You are a helpful home assistant. Answer in one or two short sentences."

// Defaults returns the configuration used when no file exists. Parse decodes
// files on top of it, so omitted fields keep these values.
func Defaults() *Config {
	return &Config{
		Assistant: AssistantConfig{Mode: ModeCommand},
		Logging:   LoggingConfig{Level: "info", Console: true},
		Scheduler: SchedulerConfig{HistorySize: 64},
		Storage:   StorageConfig{Driver: "memory"},
		Query: QueryConfig{
			Model:        "gpt-4o-mini",
			APIKeyEnv:    "OPENAI_API_KEY",
			SystemPrompt: DefaultSystemPrompt,
			Temperature:  0.7,
			MaxTokens:    256,
			MaxHistory:   5,
			Timeout:      "30s",
			RatePerSec:   1,
		},
		Music: MusicConfig{DefaultVolume: 50, VolumeStep: 10},
		REPL:  REPLConfig{Prompt: "homecmd> "},
	}
}
