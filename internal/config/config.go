// Package config holds runtime configuration: defaults, TOML loading,
// environment overrides, and validation. A Config is built once at startup
// and handed to jobs by value; nothing mutates it after [Load] returns.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// --- Enum types for validated string fields ---

// AudioMode selects how the original clip audio and a background track are combined.
type AudioMode string

const (
	AudioMix     AudioMode = "mix"     // Original plus background track (default).
	AudioReplace AudioMode = "replace" // Background track only.
	AudioCustom  AudioMode = "custom"  // Explicit keep_original / use_new toggles.
)

// FillMode controls how a panel is fitted into its box.
type FillMode string

const (
	FillPad  FillMode = "pad"  // Scale down and letterbox.
	FillCrop FillMode = "fill" // Scale up and center crop (default for backgrounds).
)

// AudioFormat is the output format of the extract-audio job.
type AudioFormat string

const (
	FormatMP3  AudioFormat = "mp3"
	FormatWAV  AudioFormat = "wav"
	FormatAAC  AudioFormat = "aac"
	FormatFLAC AudioFormat = "flac"
	FormatOGG  AudioFormat = "ogg"
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Paths contains shared output locations.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	WorkDir   string `toml:"work_dir"` // Parent of per-item workspaces. Default: output_dir.
}

// Ambient configures the cover + forward/reverse loop job.
type Ambient struct {
	RawDir        string  `toml:"raw_dir"`
	CoverImage    string  `toml:"cover_image"`
	TotalMinutes  float64 `toml:"total_minutes"` // Default: 30.
	CoverSeconds  float64 `toml:"cover_seconds"` // Default: 2.
	Width         int     `toml:"width"`         // 0 with height 0 matches the source frame.
	Height        int     `toml:"height"`
	OutputPrefix  string  `toml:"output_prefix"`
	DeleteSources bool    `toml:"delete_sources"`
}

// Stack configures the vertical two-panel composite job.
type Stack struct {
	PrimaryDir       string   `toml:"primary_dir"`
	BackgroundDir    string   `toml:"background_dir"`
	Width            int      `toml:"width"`  // Default: 1080.
	Height           int      `toml:"height"` // Default: 1920. Each panel is half.
	Fill             FillMode `toml:"fill"`
	ZoomPercent      int      `toml:"zoom_percent"` // Background zoom in fill mode. Default: 100.
	PrimaryOnTop     bool     `toml:"primary_on_top"`
	RandomBackground bool     `toml:"random_background"`
	OutputPrefix     string   `toml:"output_prefix"`
	DeleteSources    bool     `toml:"delete_sources"`
}

// Mux configures the loop-video-under-audio job.
type Mux struct {
	AudioDir     string  `toml:"audio_dir"`
	VideoDir     string  `toml:"video_dir"`
	StillsDir    string  `toml:"stills_dir"`
	Speed        float64 `toml:"speed"`         // 1.0 = normal, 0.8 = 20% slower. Default: 0.8.
	StillSeconds float64 `toml:"still_seconds"` // Default: 3.
	Width        int     `toml:"width"`         // 0 with height 0 matches the video frame.
	Height       int     `toml:"height"`
	DeleteAudio  bool    `toml:"delete_audio"`
	DeleteVideo  bool    `toml:"delete_video"` // Only base-name matched videos are removed.
	DeleteStills bool    `toml:"delete_stills"`
}

// Extract configures the extract-audio job.
type Extract struct {
	InputDir string      `toml:"input_dir"`
	Format   AudioFormat `toml:"format"`
	Bitrate  string      `toml:"bitrate"`
}

// Encode holds encoder settings shared by every job.
type Encode struct {
	VideoCodec     string  `toml:"video_codec"`
	Preset         string  `toml:"preset"`
	CRF            int     `toml:"crf"` // Quality for jobs without a size cap (mux).
	Threads        int     `toml:"threads"`
	FPS            int     `toml:"fps"`
	AudioBitrate   string  `toml:"audio_bitrate"`
	SampleRate     int     `toml:"sample_rate"`
	SizeCapGiB     float64 `toml:"size_cap_gib"`
	SizeSafety     float64 `toml:"size_safety"`
	MinVideoKbps   int     `toml:"min_video_kbps"`
	TimeoutMinutes int     `toml:"timeout_minutes"`
	Retries        int     `toml:"retries"`
}

// Audio holds the track selection policy and volume chain.
type Audio struct {
	Mode            AudioMode `toml:"mode"`
	Dir             string    `toml:"dir"`      // Candidate background tracks.
	Override        string    `toml:"override"` // Explicit track; used when random is off or the folder is empty.
	PrimaryName     string    `toml:"primary_name"`
	Random          bool      `toml:"random"`
	KeepOriginal    bool      `toml:"keep_original"` // custom mode only.
	UseNew          bool      `toml:"use_new"`       // custom mode only.
	MasterVolume    float64   `toml:"master_volume"`
	BasePercent     float64   `toml:"base_percent"`
	OriginalPercent float64   `toml:"original_percent"`
	NewPercent      float64   `toml:"new_percent"`
}

// Batch controls item scheduling.
type Batch struct {
	Workers int  `toml:"workers"`
	DryRun  bool `toml:"dry_run"`
}

// Logging controls console and file output.
type Logging struct {
	Verbose bool      `toml:"verbose"`
	Color   ColorMode `toml:"color"`
	File    string    `toml:"file"`
}

// Config holds all runtime settings, one section per job plus the shared
// encoder, audio policy, batch and logging sections.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Ambient Ambient `toml:"ambient"`
	Stack   Stack   `toml:"stack"`
	Mux     Mux     `toml:"mux"`
	Extract Extract `toml:"extract"`
	Encode  Encode  `toml:"encode"`
	Audio   Audio   `toml:"audio"`
	Batch   Batch   `toml:"batch"`
	Logging Logging `toml:"logging"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: "ready",
		},
		Ambient: Ambient{
			RawDir:       "raw_asmr",
			CoverImage:   "asmr_cover.png",
			TotalMinutes: 30,
			CoverSeconds: 2,
			OutputPrefix: "asmr_",
		},
		Stack: Stack{
			PrimaryDir:       "raw_short",
			BackgroundDir:    "brainrot_videos",
			Width:            1080,
			Height:           1920,
			Fill:             FillCrop,
			ZoomPercent:      100,
			PrimaryOnTop:     true,
			RandomBackground: true,
			OutputPrefix:     "combined_",
		},
		Mux: Mux{
			AudioDir:     "coding_audio",
			VideoDir:     "coding_video",
			StillsDir:    "coding_photos",
			Speed:        0.8,
			StillSeconds: 3,
		},
		Extract: Extract{
			InputDir: "raw_audio_source",
			Format:   FormatMP3,
			Bitrate:  "192k",
		},
		Encode: Encode{
			VideoCodec:     "libx264",
			Preset:         "faster",
			CRF:            20,
			Threads:        3,
			FPS:            30,
			AudioBitrate:   "192k",
			SampleRate:     44100,
			SizeCapGiB:     1.0,
			SizeSafety:     0.98,
			MinVideoKbps:   600,
			TimeoutMinutes: 120,
			Retries:        1,
		},
		Audio: Audio{
			Mode:            AudioMix,
			Dir:             "music",
			PrimaryName:     "primary",
			Random:          true,
			KeepOriginal:    true,
			UseNew:          true,
			MasterVolume:    1.0,
			BasePercent:     100,
			OriginalPercent: 100,
			NewPercent:      100,
		},
		Batch: Batch{
			Workers: 1,
		},
		Logging: Logging{
			Color: ColorAuto,
		},
	}
}

// SampleConfig returns the commented sample configuration written by `config init`.
func SampleConfig() string {
	return sampleConfig
}

// DefaultConfigPath returns the per-user configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/loopforge/config.toml")
}

// Override mutates a freshly decoded Config before it is normalized and
// validated. Command-line flags are applied this way.
type Override func(*Config)

// Load locates and parses a configuration file, applies .env and environment
// overrides, then the given overrides, and validates the result. A missing
// file is not an error: the defaults are used and exists is false.
func Load(path string, overrides ...Override) (cfg Config, resolvedPath string, exists bool, err error) {
	cfg = Default()

	// .env is optional; a missing file is the common case.
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("LOOPFORGE_CONFIG")
	}
	resolvedPath, exists, err = resolveConfigPath(path)
	if err != nil {
		return Config{}, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return Config{}, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return Config{}, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	for _, o := range overrides {
		o(&cfg)
	}

	if err := cfg.normalize(); err != nil {
		return Config{}, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, "", false, err
	}
	return cfg, resolvedPath, exists, nil
}

// Marshal renders cfg as TOML for `config show`.
func Marshal(cfg Config) ([]byte, error) {
	return toml.Marshal(cfg)
}

// SizeCapBytes converts the GiB cap to bytes.
func (e Encode) SizeCapBytes() int64 {
	return int64(e.SizeCapGiB * 1024 * 1024 * 1024)
}

// TargetSeconds is the exact duration of an ambient artifact.
func (a Ambient) TargetSeconds() float64 {
	return a.TotalMinutes * 60
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("loopforge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for flag overrides applied after Load.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// ValidatePaths ensures the resolved output directory is not inside (or equal
// to) the resolved source directory, so a batch never discovers its own
// output. Both arguments must be absolute, symlink-resolved paths.
func ValidatePaths(sourceAbs, outputAbs string) error {
	sep := string(filepath.Separator)
	if outputAbs == sourceAbs || strings.HasPrefix(outputAbs+sep, sourceAbs+sep) {
		return errors.New("output directory must not be inside the source directory")
	}
	return nil
}
