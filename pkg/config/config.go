package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config はサーバの可変パラメータ一覧です。
type Config struct {
	ListenAddr      string
	MapsAPIKey      string
	Project         string
	Location        string
	DescribeModel   string
	SynthesizeModel string
	PanoramaSource  string
	DatabasePath    string
	JWTSecret       string
	CooldownMinutes int
	LogLevel        string
}

const (
	defaultListenAddr      = ":8080"
	defaultLocation        = "us-central1"
	defaultDescribeModel   = "gemini-2.0-flash-001"
	defaultSynthesizeModel = "imagen-3.0-generate-002"
	defaultDatabasePath    = "data/scenekit.db"
	defaultCooldownMinutes = 10
	defaultLogLevel        = "info"
)

// Load は環境変数から設定を組み立てます。未設定の値は既定値になります。
// Project・JWTSecret・MapsAPIKey（HTTP ソース利用時）は運用上必須ですが、
// 検証は利用側の依存構築に委ねます。
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:      defaultListenAddr,
		Location:        defaultLocation,
		DescribeModel:   defaultDescribeModel,
		SynthesizeModel: defaultSynthesizeModel,
		DatabasePath:    defaultDatabasePath,
		CooldownMinutes: defaultCooldownMinutes,
		LogLevel:        defaultLogLevel,
	}

	if v := os.Getenv("SCENEKIT_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}

	cfg.MapsAPIKey = os.Getenv("SCENEKIT_MAPS_API_KEY")
	cfg.Project = os.Getenv("SCENEKIT_PROJECT")

	if v := os.Getenv("SCENEKIT_LOCATION"); v != "" {
		cfg.Location = v
	}

	if v := os.Getenv("SCENEKIT_DESCRIBE_MODEL"); v != "" {
		cfg.DescribeModel = v
	}

	if v := os.Getenv("SCENEKIT_SYNTHESIZE_MODEL"); v != "" {
		cfg.SynthesizeModel = v
	}

	cfg.PanoramaSource = os.Getenv("SCENEKIT_PANORAMA_SOURCE")

	if v := os.Getenv("SCENEKIT_DATABASE_PATH"); v != "" {
		cfg.DatabasePath = v
	}

	cfg.JWTSecret = os.Getenv("SCENEKIT_JWT_SECRET")

	if v := os.Getenv("SCENEKIT_COOLDOWN_MINUTES"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes <= 0 {
			return Config{}, fmt.Errorf("invalid SCENEKIT_COOLDOWN_MINUTES: %q", v)
		}
		cfg.CooldownMinutes = minutes
	}

	if v := os.Getenv("SCENEKIT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg, nil
}
