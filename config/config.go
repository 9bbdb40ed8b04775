package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Gemini   GeminiConfig   `yaml:"gemini"`
	Speech   SpeechConfig   `yaml:"speech"`
	Capture  CaptureConfig  `yaml:"capture"`
	Browser  BrowserConfig  `yaml:"browser"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Dialogue DialogueConfig `yaml:"dialogue"`
	Pushover PushoverConfig `yaml:"pushover"`
	Log      LogConfig      `yaml:"log"`
}

type GeminiConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
	Backend string `yaml:"backend"`
}

type SpeechConfig struct {
	Engine   string            `yaml:"engine"`
	Command  string            `yaml:"command"`
	Voices   map[string]string `yaml:"voices"`
	Deepgram DeepgramConfig    `yaml:"deepgram"`
}

type DeepgramConfig struct {
	APIKey     string `yaml:"api_key"`
	ModelEN    string `yaml:"model_en"`
	ModelHI    string `yaml:"model_hi"`
	SampleRate int    `yaml:"sample_rate"`
}

type CaptureConfig struct {
	Source     string `yaml:"source"`
	HTTPAddr   string `yaml:"http_addr"`
	FileDir    string `yaml:"file_dir"`
	AuthToken  string `yaml:"auth_token"`
	SampleRate int    `yaml:"sample_rate"`
}

type BrowserConfig struct {
	Addr string `yaml:"addr"`
}

type OpenAIConfig struct {
	APIKey   string `yaml:"api_key"`
	Language string `yaml:"language"`
}

type DialogueConfig struct {
	Overlap string `yaml:"overlap"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Enabled bool   `yaml:"enabled"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a .env file from the working directory when one exists, then
// the YAML file at path with ${VAR} references expanded.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Gemini.APIKey == "" {
		c.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.0-flash"
	}
	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if c.Gemini.Backend == "" {
		c.Gemini.Backend = "rest"
	}
	if c.Speech.Engine == "" {
		c.Speech.Engine = "command"
	}
	if c.Speech.Command == "" {
		c.Speech.Command = "espeak"
	}
	if c.Speech.Deepgram.ModelEN == "" {
		c.Speech.Deepgram.ModelEN = "aura-asteria-en"
	}
	if c.Speech.Deepgram.SampleRate == 0 {
		c.Speech.Deepgram.SampleRate = 24000
	}
	if c.Capture.Source == "" {
		c.Capture.Source = "stdin"
	}
	if c.Capture.HTTPAddr == "" {
		c.Capture.HTTPAddr = ":8080"
	}
	if c.Capture.FileDir == "" {
		c.Capture.FileDir = "./audio"
	}
	if c.Capture.SampleRate == 0 {
		c.Capture.SampleRate = 16000
	}
	if c.Browser.Addr == "" {
		c.Browser.Addr = ":8081"
	}
	if c.Dialogue.Overlap == "" {
		c.Dialogue.Overlap = "queue"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// VoiceMap returns the configured voices keyed by locale. Keys may be given
// as language codes ("en", "hi") or full locales.
func (s SpeechConfig) VoiceMap() map[string]string {
	out := make(map[string]string, len(s.Voices))
	for key, name := range s.Voices {
		switch key {
		case "en":
			key = "en-US"
		case "hi":
			key = "hi-IN"
		}
		out[key] = name
	}
	return out
}

// DeepgramVoices maps locales to Deepgram Aura models.
func (d DeepgramConfig) DeepgramVoices() map[string]string {
	return map[string]string{"en-US": d.ModelEN, "hi-IN": d.ModelHI}
}
