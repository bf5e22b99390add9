// config.go: settings struct and functions to load and save the fieldcut configuration.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed config.yaml
var configFiles embed.FS

// MainConfig contains the top level application settings.
type MainConfig struct {
	Name string    // application instance name, used in log output
	Log  LogConfig // log file settings
}

// LogConfig contains settings for the application log file.
type LogConfig struct {
	Enabled bool   // true to write a rotated JSON log file
	Path    string // path to the log file
}

// DetectionSettings contains the knobs of the detection and
// segment-resolution pipeline.
type DetectionSettings struct {
	Mode      string // detector selection: auto, voice, transient, nonsilence, spectral
	Threshold string // adaptive threshold percentile (0-100) or "auto"

	// Padding applied to detected segments before deduplication, milliseconds.
	PrePadMs  float64
	PostPadMs float64

	MergeGapMs float64 // candidates closer than this are merged
	MinDurMs   float64 // segments shorter than this are dropped
	MaxDurMs   float64 // segments longer than this are truncated
	MinGapMs   float64 // minimum gap between retained segments

	NoMergeAfterPadding bool // do not re-merge segments that overlap only due to padding

	MaxSamples       int    // cap on the number of emitted segments
	SampleSpread     bool   // distribute capped samples across the timeline
	SampleSpreadMode string // "strict" or "closest"

	ResolveOverlaps string  // "" or "keep-highest"
	OverlapIoU      float64 // IoU at or above which two segments are the same event

	VAD VADSettings // voice activity detector settings
}

// VADSettings contains settings for the voice activity detector.
type VADSettings struct {
	Aggressiveness  int     // 0-3, higher is more strict
	FrameDurationMs int     // 10, 20 or 30
	MinDurationMs   float64 // voiced runs shorter than this are discarded
	LowFreq         float64 // optional prefilter band low edge, 0 disables
	HighFreq        float64 // optional prefilter band high edge, 0 means nyquist
}

// PreprocessSettings mirrors the external denoise/resample collaborator's
// configuration. Denoising itself happens outside this engine; the fields are
// validated and persisted here so one settings document drives the whole run.
type PreprocessSettings struct {
	Denoise    string  // "off", "afftdn" or "arnndn"
	HP         float64 // highpass cutoff in Hz, 0 disables
	LP         float64 // lowpass cutoff in Hz, 0 disables
	NR         float64 // noise reduction strength in dB
	AnalysisSR int     // sample rate detectors run at
}

// ResolveSettings controls how a freshly detected batch is reconciled
// against an already edited project.
type ResolveSettings struct {
	ToleranceMs     float64 // start/end equality tolerance for duplicates
	DefaultBehavior string  // discard_duplicates, discard_overlaps or keep_all
}

// InputConfig holds runtime input parameters, never persisted.
type InputConfig struct {
	Path      string `yaml:"-"` // path to input file or directory
	Recursive bool   `yaml:"-"` // true for recursive directory analysis
}

// OutputSettings contains settings for analysis output.
type OutputSettings struct {
	Dir        string // directory for timestamps, markers and project files
	Format     string // console output: table or csv
	MaxWorkers int    // directory analysis parallelism, 0 picks a default
}

// Settings is the root configuration record.
type Settings struct {
	Debug bool // true to enable debug output

	Main       MainConfig
	Detection  DetectionSettings
	Preprocess PreprocessSettings
	Resolve    ResolveSettings
	Output     OutputSettings

	Input InputConfig `yaml:"-"`
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration into the package level settings instance.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

func initViper() error {
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig creates a default config file from the embedded template.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")
	defaultConfig, err := getDefaultConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil { //nolint:gosec // config contains no secrets
		return fmt.Errorf("error writing default config file: %w", err)
	}

	return viper.ReadInConfig()
}

// getDefaultConfig reads the embedded default configuration template.
func getDefaultConfig() (string, error) {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return "", fmt.Errorf("error reading embedded config: %w", err)
	}
	return string(data), nil
}

// GetDefaultConfigPaths returns the candidate configuration directories in
// priority order: the working directory, then the user config directory.
func GetDefaultConfigPaths() ([]string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return []string{"."}, nil //nolint:nilerr // fall back to cwd only
	}
	return []string{".", filepath.Join(configDir, "fieldcut")}, nil
}

// Setting returns the shared settings instance, loading it on first use.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				panic(fmt.Errorf("error loading settings: %w", err))
			}
		}
	})
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveSettings writes the current settings to the given path as YAML.
func SaveSettings(settings *Settings, path string) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to yaml: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating settings directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // settings contain no secrets
		return fmt.Errorf("error writing settings file: %w", err)
	}
	return nil
}
