package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	ModelDir        string
	OnnxRuntimeLib  string
	DisableTensor   bool
	ModelTimeout    time.Duration
	DataPath        string
	MetricsPort     int
	TreeWeight      float64
	LinearWeight    float64
	TensorWeight    float64
	DataQualityW    float64
	ModelCertaintyW float64
	HistAccuracyW   float64
	ContextFactorsW float64
}

type ConfigFile struct {
	Models struct {
		Dir            string `yaml:"dir"`
		OnnxRuntimeLib string `yaml:"onnxRuntimeLib"`
		DisableTensor  bool   `yaml:"disableTensor"`
		Timeout        string `yaml:"timeout"`
	} `yaml:"models"`

	Ensemble struct {
		TreeWeight   float64 `yaml:"treeWeight"`
		LinearWeight float64 `yaml:"linearWeight"`
		TensorWeight float64 `yaml:"tensorWeight"`
	} `yaml:"ensemble"`

	Confidence struct {
		DataQuality        float64 `yaml:"dataQuality"`
		ModelCertainty     float64 `yaml:"modelCertainty"`
		HistoricalAccuracy float64 `yaml:"historicalAccuracy"`
		ContextualFactors  float64 `yaml:"contextualFactors"`
	} `yaml:"confidence"`

	System struct {
		DataPath    string `yaml:"dataPath"`
		MetricsPort int    `yaml:"metricsPort"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromYAML(configPath)
	}
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	timeout := getDurationFromEnvOrConfig("MODEL_TIMEOUT", config.Models.Timeout, 2*time.Second)

	settings := Settings{
		ModelDir:        getEnvOrDefault("MODEL_DIR", config.Models.Dir),
		OnnxRuntimeLib:  getEnvOrDefault("ONNXRUNTIME_LIB", config.Models.OnnxRuntimeLib),
		DisableTensor:   getBoolFromEnvOrConfig("DISABLE_TENSOR_MODELS", config.Models.DisableTensor),
		ModelTimeout:    timeout,
		DataPath:        getEnvOrDefault("DATA_PATH", config.System.DataPath),
		MetricsPort:     getIntFromEnvOrConfig("METRICS_PORT", config.System.MetricsPort),
		TreeWeight:      getFloatFromEnvOrConfig("TREE_WEIGHT", config.Ensemble.TreeWeight),
		LinearWeight:    getFloatFromEnvOrConfig("LINEAR_WEIGHT", config.Ensemble.LinearWeight),
		TensorWeight:    getFloatFromEnvOrConfig("TENSOR_WEIGHT", config.Ensemble.TensorWeight),
		DataQualityW:    config.Confidence.DataQuality,
		ModelCertaintyW: config.Confidence.ModelCertainty,
		HistAccuracyW:   config.Confidence.HistoricalAccuracy,
		ContextFactorsW: config.Confidence.ContextualFactors,
	}
	applyDefaults(&settings)

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		ModelDir:       getEnvOrDefault("MODEL_DIR", "models"),
		OnnxRuntimeLib: os.Getenv("ONNXRUNTIME_LIB"), // optional
		DisableTensor:  getBoolOrDefault("DISABLE_TENSOR_MODELS", false),
		ModelTimeout:   getDurationOrDefault("MODEL_TIMEOUT", 2*time.Second),
		DataPath:       os.Getenv("DATA_PATH"), // optional, disables persistence when empty
		MetricsPort:    getIntOrDefault("METRICS_PORT", 0),
		TreeWeight:     getFloatOrDefault("TREE_WEIGHT", 0.5),
		LinearWeight:   getFloatOrDefault("LINEAR_WEIGHT", 0.25),
		TensorWeight:   getFloatOrDefault("TENSOR_WEIGHT", 0.25),
	}
	applyDefaults(&settings)

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

// applyDefaults fills zero values left by a sparse YAML file.
func applyDefaults(s *Settings) {
	if s.ModelDir == "" {
		s.ModelDir = "models"
	}
	if s.ModelTimeout == 0 {
		s.ModelTimeout = 2 * time.Second
	}
	if s.TreeWeight == 0 && s.LinearWeight == 0 && s.TensorWeight == 0 {
		s.TreeWeight, s.LinearWeight, s.TensorWeight = 0.5, 0.25, 0.25
	}
	if s.DataQualityW == 0 && s.ModelCertaintyW == 0 && s.HistAccuracyW == 0 && s.ContextFactorsW == 0 {
		s.DataQualityW, s.ModelCertaintyW, s.HistAccuracyW, s.ContextFactorsW = 0.25, 0.30, 0.30, 0.15
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationFromEnvOrConfig(key, configValue string, defaultValue time.Duration) time.Duration {
	if env := os.Getenv(key); env != "" {
		if d, err := time.ParseDuration(env); err == nil {
			return d
		}
	}
	if d, err := time.ParseDuration(configValue); err == nil {
		return d
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	return configValue
}

func getFloatFromEnvOrConfig(key string, configValue float64) float64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseFloat(env, 64); err == nil {
			return val
		}
	}
	return configValue
}

func getBoolFromEnvOrConfig(key string, configValue bool) bool {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseBool(env); err == nil {
			return val
		}
	}
	return configValue
}

// validateSettings performs validation of configuration values
func validateSettings(settings *Settings) error {
	if settings.ModelDir == "" {
		return fmt.Errorf("model directory cannot be empty")
	}
	if settings.ModelTimeout < 100*time.Millisecond || settings.ModelTimeout > time.Minute {
		return fmt.Errorf("model timeout must be between 100ms and 1m, got %v", settings.ModelTimeout)
	}
	if settings.MetricsPort != 0 && (settings.MetricsPort < 1024 || settings.MetricsPort > 65535) {
		return fmt.Errorf("metrics port must be 0 (disabled) or between 1024 and 65535, got %d", settings.MetricsPort)
	}

	for name, w := range map[string]float64{
		"tree weight":   settings.TreeWeight,
		"linear weight": settings.LinearWeight,
		"tensor weight": settings.TensorWeight,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %f", name, w)
		}
	}
	if settings.TreeWeight+settings.LinearWeight+settings.TensorWeight <= 0 {
		return fmt.Errorf("ensemble weights must not all be zero")
	}

	confSum := settings.DataQualityW + settings.ModelCertaintyW +
		settings.HistAccuracyW + settings.ContextFactorsW
	if confSum < 0.99 || confSum > 1.01 {
		return fmt.Errorf("confidence factor weights must sum to 1, got %f", confSum)
	}

	return nil
}
