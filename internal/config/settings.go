package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	PoolSize int    `mapstructure:"pool_size"`
}

func (d DBConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.Username, d.Password, d.Host, d.Port, d.Name)
}

type RedisConfig struct {
	Addr string `mapstructure:"addr"`
	Pass string `mapstructure:"pass"`
	// Channel detections are published on for subscribed dashboards.
	DetectionChannel string `mapstructure:"detection_channel"`
}

// DetectionConfig tunes the analysis pipeline. Zero values fall back to the
// defaults applied in Normalize.
type DetectionConfig struct {
	SampleRate       int           `mapstructure:"sample_rate"`       // Hz, mic capture rate
	WindowDuration   time.Duration `mapstructure:"window_duration"`   // analysis window length
	AnalysisInterval time.Duration `mapstructure:"analysis_interval"` // min gap between analyses
	CarryOver        time.Duration `mapstructure:"carry_over"`        // samples retained across windows
	AcousticWeight   float64       `mapstructure:"acoustic_weight"`
	TranscriptWeight float64       `mapstructure:"transcript_weight"`
	PatternWeight    float64       `mapstructure:"pattern_weight"`
	TriggerThreshold float64       `mapstructure:"trigger_threshold"`
	HistoryLimit     int           `mapstructure:"history_limit"`
	TrainingLogLimit int           `mapstructure:"training_log_limit"`
}

func (d *DetectionConfig) Normalize() {
	if d.SampleRate <= 0 {
		d.SampleRate = 24000
	}
	if d.WindowDuration <= 0 {
		d.WindowDuration = 3 * time.Second
	}
	if d.AnalysisInterval <= 0 {
		d.AnalysisInterval = 2 * time.Second
	}
	if d.CarryOver <= 0 {
		d.CarryOver = time.Second
	}
	if d.AcousticWeight == 0 && d.TranscriptWeight == 0 && d.PatternWeight == 0 {
		d.AcousticWeight = 0.4
		d.TranscriptWeight = 0.4
		d.PatternWeight = 0.2
	}
	if d.TriggerThreshold <= 0 {
		d.TriggerThreshold = 0.6
	}
	if d.HistoryLimit <= 0 {
		d.HistoryLimit = 100
	}
	if d.TrainingLogLimit <= 0 {
		d.TrainingLogLimit = 1000
	}
}

// ClassifierConfig points at the optional inference backends. Empty URLs mean
// the rule-based fallback runs alone.
type ClassifierConfig struct {
	AudioURL string        `mapstructure:"audio_url"`
	TextURL  string        `mapstructure:"text_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type VoiceConfig struct {
	STTURL         string        `mapstructure:"stt_url"`
	RestartDelay   time.Duration `mapstructure:"restart_delay"`
	MaxRestarts    int           `mapstructure:"max_restarts"`
	SegmentTimeout time.Duration `mapstructure:"segment_timeout"`
}

type NotifierConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type StorageConfig struct {
	Dir string `mapstructure:"dir"` // directory for phrase/history/training JSON files
}

type Settings struct {
	DB         DBConfig         `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Detection  DetectionConfig  `mapstructure:"detection"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Voice      VoiceConfig      `mapstructure:"voice"`
	Notifier   NotifierConfig   `mapstructure:"notifier"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Env        string           `mapstructure:"env"`
	Port       int              `mapstructure:"port"`
	Debug      bool             `mapstructure:"debug"`
}

func Load() (*Settings, error) {
	viper.SetConfigName("config_" + genEnv())
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var settings Settings
	if err := viper.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	settings.Detection.Normalize()

	return &settings, nil
}

func genEnv() string {
	env := viper.GetString("ENV")
	if env == "" {
		return "dev"
	}
	return env
}
