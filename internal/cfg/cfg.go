package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"classgen/internal/common"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	Samples    int
	Features   int
	Classes    int
	OutputPath string
	Seed       *uint64

	Informative      int
	Redundant        int
	Repeated         int
	ClustersPerClass int
	Weights          []float64
	FlipY            float64
	ClassSep         float64
	Hypercube        bool
	Shift            float64
	Scale            float64
	Shuffle          bool

	DataPath    string
	MetricsFile string
	LogLevel    string
}

// ConfigFile mirrors the YAML layout. Pointer fields tell an explicit zero
// apart from an omitted key.
type ConfigFile struct {
	Dataset struct {
		Samples    *int    `yaml:"samples"`
		Features   *int    `yaml:"features"`
		Classes    *int    `yaml:"classes"`
		OutputPath string  `yaml:"outputPath"`
		Seed       *uint64 `yaml:"seed"`
	} `yaml:"dataset"`

	Generator struct {
		Informative      *int      `yaml:"informative"`
		Redundant        *int      `yaml:"redundant"`
		Repeated         *int      `yaml:"repeated"`
		ClustersPerClass *int      `yaml:"clustersPerClass"`
		Weights          []float64 `yaml:"weights"`
		FlipY            *float64  `yaml:"flipY"`
		ClassSep         *float64  `yaml:"classSep"`
		Hypercube        *bool     `yaml:"hypercube"`
		Shift            *float64  `yaml:"shift"`
		Scale            *float64  `yaml:"scale"`
		Shuffle          *bool     `yaml:"shuffle"`
	} `yaml:"generator"`

	System struct {
		DataPath    string `yaml:"dataPath"`
		MetricsFile string `yaml:"metricsFile"`
		LogLevel    string `yaml:"logLevel"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
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

	return resolve(config)
}

func loadFromEnv() (Settings, error) {
	return resolve(ConfigFile{})
}

// resolve merges environment variables over config file values over defaults.
func resolve(config ConfigFile) (Settings, error) {
	var env envReader
	d, g, s := config.Dataset, config.Generator, config.System

	settings := Settings{
		Samples:    env.intVal(common.EnvSamples, d.Samples, common.DefaultSamples),
		Features:   env.intVal(common.EnvFeatures, d.Features, common.DefaultFeatures),
		Classes:    env.intVal(common.EnvClasses, d.Classes, common.DefaultClasses),
		OutputPath: env.strVal(common.EnvOutputPath, d.OutputPath, common.DefaultOutputPath),
		Seed:       env.seedVal(common.EnvSeed, d.Seed),

		Informative:      env.intVal(common.EnvInformative, g.Informative, common.DefaultInformative),
		Redundant:        env.intVal(common.EnvRedundant, g.Redundant, common.DefaultRedundant),
		Repeated:         env.intVal(common.EnvRepeated, g.Repeated, common.DefaultRepeated),
		ClustersPerClass: env.intVal(common.EnvClustersPerClass, g.ClustersPerClass, common.DefaultClustersPerClass),
		Weights:          env.floatsVal(common.EnvWeights, g.Weights),
		FlipY:            env.floatVal(common.EnvFlipY, g.FlipY, common.DefaultFlipY),
		ClassSep:         env.floatVal(common.EnvClassSep, g.ClassSep, common.DefaultClassSep),
		Hypercube:        env.boolVal(common.EnvHypercube, g.Hypercube, common.DefaultHypercube),
		Shift:            env.floatVal(common.EnvShift, g.Shift, common.DefaultShift),
		Scale:            env.floatVal(common.EnvScale, g.Scale, common.DefaultScale),
		Shuffle:          env.boolVal(common.EnvShuffle, g.Shuffle, common.DefaultShuffle),

		DataPath:    env.strVal(common.EnvDataPath, s.DataPath, ""), // optional
		MetricsFile: env.strVal(common.EnvMetricsFile, s.MetricsFile, ""),
		LogLevel:    env.strVal(common.EnvLogLevel, s.LogLevel, common.DefaultLogLevel),
	}
	if env.err != nil {
		return Settings{}, env.err
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// envReader reads typed environment overrides and keeps the first parse error.
type envReader struct {
	err error
}

func (r *envReader) lookup(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func (r *envReader) fail(key, value string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("invalid value %q for %s: %w", value, key, err)
	}
}

func (r *envReader) strVal(key, configValue, defaultValue string) string {
	if v, ok := r.lookup(key); ok {
		return v
	}
	if configValue != "" {
		return configValue
	}
	return defaultValue
}

func (r *envReader) intVal(key string, configValue *int, defaultValue int) int {
	if v, ok := r.lookup(key); ok {
		i, err := strconv.Atoi(v)
		if err != nil {
			r.fail(key, v, err)
		}
		return i
	}
	if configValue != nil {
		return *configValue
	}
	return defaultValue
}

func (r *envReader) floatVal(key string, configValue *float64, defaultValue float64) float64 {
	if v, ok := r.lookup(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			r.fail(key, v, err)
		}
		return f
	}
	if configValue != nil {
		return *configValue
	}
	return defaultValue
}

func (r *envReader) boolVal(key string, configValue *bool, defaultValue bool) bool {
	if v, ok := r.lookup(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			r.fail(key, v, err)
		}
		return b
	}
	if configValue != nil {
		return *configValue
	}
	return defaultValue
}

func (r *envReader) seedVal(key string, configValue *uint64) *uint64 {
	if v, ok := r.lookup(key); ok {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			r.fail(key, v, err)
			return nil
		}
		return &seed
	}
	return configValue
}

func (r *envReader) floatsVal(key string, configValue []float64) []float64 {
	v, ok := r.lookup(key)
	if !ok {
		return configValue
	}

	parts := strings.Split(v, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			r.fail(key, v, err)
			return nil
		}
		out = append(out, f)
	}
	return out
}

// validateSettings performs range validation of configuration values
func validateSettings(settings *Settings) error {
	// Dataset shape
	if settings.Samples <= 0 || settings.Samples > common.MaxSamples {
		return fmt.Errorf("samples must be between 1 and %d, got %d", common.MaxSamples, settings.Samples)
	}
	if settings.Features <= 0 || settings.Features > common.MaxFeatures {
		return fmt.Errorf("features must be between 1 and %d, got %d", common.MaxFeatures, settings.Features)
	}
	if settings.Classes < 2 || settings.Classes > common.MaxClasses {
		return fmt.Errorf("classes must be between 2 and %d, got %d", common.MaxClasses, settings.Classes)
	}
	if settings.OutputPath == "" {
		return fmt.Errorf("output path cannot be empty")
	}

	// Generator parameters
	if settings.Informative < 1 {
		return fmt.Errorf("informative features must be at least 1, got %d", settings.Informative)
	}
	if settings.Redundant < 0 || settings.Repeated < 0 {
		return fmt.Errorf("redundant and repeated features cannot be negative, got %d and %d",
			settings.Redundant, settings.Repeated)
	}
	if settings.ClustersPerClass < 1 {
		return fmt.Errorf("clusters per class must be at least 1, got %d", settings.ClustersPerClass)
	}
	if n := len(settings.Weights); n != 0 && n != settings.Classes && n != settings.Classes-1 {
		return fmt.Errorf("expected %d or %d class weights, got %d", settings.Classes-1, settings.Classes, n)
	}
	for _, w := range settings.Weights {
		if w < 0 || w > 1 {
			return fmt.Errorf("class weights must be between 0 and 1, got %f", w)
		}
	}
	if settings.FlipY < 0 || settings.FlipY > 1 {
		return fmt.Errorf("flip fraction must be between 0 and 1, got %f", settings.FlipY)
	}
	if settings.ClassSep < 0 {
		return fmt.Errorf("class separation cannot be negative, got %f", settings.ClassSep)
	}
	if settings.Scale == 0 {
		return fmt.Errorf("scale cannot be zero")
	}

	if _, err := zerolog.ParseLevel(settings.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", settings.LogLevel, err)
	}

	return nil
}
