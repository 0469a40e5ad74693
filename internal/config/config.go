// Package config loads the service configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then a
// .env file, then the process environment. Later layers win; a .env file
// never overrides a variable that is already set.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

const (
	LLMProviderGemini = "gemini"
	LLMProviderGroq   = "groq"

	TTSProviderElevenLabs = "elevenlabs"
	TTSProviderDeepgram   = "deepgram"
)

type Config struct {
	Env string `yaml:"env"`

	Server     ServerConfig     `yaml:"server"`
	LiveKit    LiveKitConfig    `yaml:"livekit"`
	Deepgram   DeepgramConfig   `yaml:"deepgram"`
	Google     GoogleConfig     `yaml:"google"`
	Groq       GroqConfig       `yaml:"groq"`
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs"`

	LLMProvider string `yaml:"llmProvider"`
	TTSProvider string `yaml:"ttsProvider"`

	GenerationTimeout Duration `yaml:"generationTimeout"`
	SynthesisTimeout  Duration `yaml:"synthesisTimeout"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr is the listen address in host:port form.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type LiveKitConfig struct {
	URL       string `yaml:"url"`
	APIKey    string `yaml:"apiKey"`
	APISecret string `yaml:"apiSecret"`
}

type DeepgramConfig struct {
	APIKey string `yaml:"apiKey"`
}

type GoogleConfig struct {
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
}

type GroqConfig struct {
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
}

type ElevenLabsConfig struct {
	APIKey  string `yaml:"apiKey"`
	VoiceID string `yaml:"voiceId"`
}

// Duration reads "30s"-style strings from YAML.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func Default() *Config {
	return &Config{
		Env: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 3000,
		},
		LiveKit: LiveKitConfig{
			URL: "ws://localhost:7880",
		},
		LLMProvider:       LLMProviderGemini,
		TTSProvider:       TTSProviderElevenLabs,
		GenerationTimeout: Duration(30 * time.Second),
		SynthesisTimeout:  Duration(30 * time.Second),
	}
}

// Load builds a Config from the defaults, the YAML file at path (skipped
// when path is empty) and the given .env files (".env" when none are
// named; missing files are ignored), then the environment.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Env = envOr("GISA_ENV", c.Env)
	c.Server.Host = envOr("HOST", c.Server.Host)
	c.LiveKit.URL = envOr("LIVEKIT_URL", c.LiveKit.URL)
	c.LiveKit.APIKey = envOr("LIVEKIT_API_KEY", c.LiveKit.APIKey)
	c.LiveKit.APISecret = envOr("LIVEKIT_API_SECRET", c.LiveKit.APISecret)
	c.Deepgram.APIKey = envOr("DEEPGRAM_API_KEY", c.Deepgram.APIKey)
	c.Google.APIKey = envOr("GOOGLE_API_KEY", c.Google.APIKey)
	c.Groq.APIKey = envOr("GROQ_API_KEY", c.Groq.APIKey)
	c.ElevenLabs.APIKey = envOr("ELEVENLABS_API_KEY", c.ElevenLabs.APIKey)
	c.ElevenLabs.VoiceID = envOr("ELEVENLABS_VOICE_ID", c.ElevenLabs.VoiceID)
	c.LLMProvider = strings.ToLower(envOr("GISA_LLM_PROVIDER", c.LLMProvider))
	c.TTSProvider = strings.ToLower(envOr("GISA_TTS_PROVIDER", c.TTSProvider))

	var errs []error
	if raw := envOr("PORT", ""); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			errs = append(errs, fmt.Errorf("PORT must be a valid port number, got %q", raw))
		} else {
			c.Server.Port = port
		}
	}
	for key, target := range map[string]*Duration{
		"GISA_GENERATION_TIMEOUT": &c.GenerationTimeout,
		"GISA_SYNTHESIS_TIMEOUT":  &c.SynthesisTimeout,
	} {
		raw := envOr(key, "")
		if raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			errs = append(errs, fmt.Errorf("%s must be a positive duration, got %q", key, raw))
			continue
		}
		*target = Duration(parsed)
	}
	return errors.Join(errs...)
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}
