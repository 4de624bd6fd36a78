package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"
)

func TestNormalizeDirArg(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no trailing slash", "/media/raw", "/media/raw"},
		{"single trailing slash", "/media/raw/", "/media/raw"},
		{"multiple trailing slashes", "/media/raw///", "/media/raw"},
		{"root path", "/", "/"},
		{"relative path", "ready", "ready"},
		{"empty string", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeDirArg(tt.in); got != tt.want {
				t.Errorf("NormalizeDirArg(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidate_Defaults(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidate_Enums(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"mix is valid", func(c *Config) { c.Audio.Mode = AudioMix }, false},
		{"replace is valid", func(c *Config) { c.Audio.Mode = AudioReplace }, false},
		{"custom is valid", func(c *Config) { c.Audio.Mode = AudioCustom }, false},
		{"unknown audio mode", func(c *Config) { c.Audio.Mode = "duck" }, true},
		{"pad is valid", func(c *Config) { c.Stack.Fill = FillPad }, false},
		{"unknown fill", func(c *Config) { c.Stack.Fill = "stretch" }, true},
		{"flac is valid", func(c *Config) { c.Extract.Format = FormatFLAC }, false},
		{"unknown format", func(c *Config) { c.Extract.Format = "opus" }, true},
		{"unknown color", func(c *Config) { c.Logging.Color = "sometimes" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_Ranges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero workers", func(c *Config) { c.Batch.Workers = 0 }},
		{"zero fps", func(c *Config) { c.Encode.FPS = 0 }},
		{"crf too high", func(c *Config) { c.Encode.CRF = 60 }},
		{"zero size cap", func(c *Config) { c.Encode.SizeCapGiB = 0 }},
		{"safety above one", func(c *Config) { c.Encode.SizeSafety = 1.2 }},
		{"zero floor", func(c *Config) { c.Encode.MinVideoKbps = 0 }},
		{"negative master volume", func(c *Config) { c.Audio.MasterVolume = -1 }},
		{"negative percent", func(c *Config) { c.Audio.NewPercent = -5 }},
		{"zero total minutes", func(c *Config) { c.Ambient.TotalMinutes = 0 }},
		{"odd width", func(c *Config) { c.Ambient.Width, c.Ambient.Height = 1921, 1080 }},
		{"only one dimension", func(c *Config) { c.Mux.Width = 1280 }},
		{"zoom below 100", func(c *Config) { c.Stack.ZoomPercent = 50 }},
		{"stack height not divisible by 4", func(c *Config) { c.Stack.Height = 1922 }},
		{"zero speed", func(c *Config) { c.Mux.Speed = 0 }},
		{"missing output dir", func(c *Config) { c.Paths.OutputDir = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestNormalizeBitrate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"192k", "192k", false},
		{"192K", "192k", false},
		{"192", "192k", false},
		{" 320kbps ", "320k", false},
		{"", "", true},
		{"0k", "", true},
		{"fast", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := normalizeBitrate(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("normalizeBitrate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("normalizeBitrate(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidatePaths(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		output  string
		wantErr bool
	}{
		{"sibling", "/media/raw", "/media/ready", false},
		{"same", "/media/raw", "/media/raw", true},
		{"nested", "/media/raw", "/media/raw/ready", true},
		{"prefix but not nested", "/media/raw", "/media/raw2", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePaths(tt.source, tt.output)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePaths() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_FileEnvAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loopforge.toml")
	content := `
[paths]
output_dir = "` + filepath.Join(dir, "out") + `"

[audio]
mode = "REPLACE"
new_percent = 40.0

[encode]
audio_bitrate = "128"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LOOPFORGE_WORKERS", "3")

	cfg, resolved, exists, err := Load(path, func(c *Config) { c.Stack.ZoomPercent = 150 })
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Errorf("resolved = %q exists = %v", resolved, exists)
	}
	if cfg.Audio.Mode != AudioReplace {
		t.Errorf("Audio.Mode = %q, want replace", cfg.Audio.Mode)
	}
	if cfg.Audio.NewPercent != 40 {
		t.Errorf("Audio.NewPercent = %g, want 40", cfg.Audio.NewPercent)
	}
	if cfg.Encode.AudioBitrate != "128k" {
		t.Errorf("Encode.AudioBitrate = %q, want 128k", cfg.Encode.AudioBitrate)
	}
	if cfg.Batch.Workers != 3 {
		t.Errorf("Batch.Workers = %d, want 3 from env", cfg.Batch.Workers)
	}
	if cfg.Stack.ZoomPercent != 150 {
		t.Errorf("Stack.ZoomPercent = %d, want 150 from override", cfg.Stack.ZoomPercent)
	}
	if cfg.Paths.WorkDir != cfg.Paths.OutputDir {
		t.Errorf("WorkDir = %q, want output dir %q", cfg.Paths.WorkDir, cfg.Paths.OutputDir)
	}
	// Untouched sections keep their defaults.
	if cfg.Encode.FPS != 30 || cfg.Ambient.CoverSeconds != 2 {
		t.Errorf("defaults lost: fps=%d cover=%g", cfg.Encode.FPS, cfg.Ambient.CoverSeconds)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")
	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("exists = true for missing file")
	}
	if cfg.Encode.SizeCapGiB != 1.0 || cfg.Audio.Mode != AudioMix {
		t.Errorf("unexpected defaults: %+v", cfg.Encode)
	}
}

func TestLoad_RejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[stack]\nfill = \"stretch\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := Load(path); err == nil || !strings.Contains(err.Error(), "stack.fill") {
		t.Errorf("Load error = %v, want stack.fill error", err)
	}
}

func TestSampleConfigMatchesDefaults(t *testing.T) {
	var fromSample Config
	if err := toml.Unmarshal([]byte(SampleConfig()), &fromSample); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	def := Default()
	if fromSample.Encode != def.Encode {
		t.Errorf("sample [encode] = %+v, want %+v", fromSample.Encode, def.Encode)
	}
	if fromSample.Audio != def.Audio {
		t.Errorf("sample [audio] = %+v, want %+v", fromSample.Audio, def.Audio)
	}
	if fromSample.Stack != def.Stack {
		t.Errorf("sample [stack] = %+v, want %+v", fromSample.Stack, def.Stack)
	}
}

func TestSizeCapBytes(t *testing.T) {
	e := Encode{SizeCapGiB: 1.0}
	if got := e.SizeCapBytes(); got != 1<<30 {
		t.Errorf("SizeCapBytes() = %d, want %d", got, 1<<30)
	}
}

func TestEnumFlagValues(t *testing.T) {
	var mode AudioMode
	v := NewAudioModeValue(&mode)
	if err := v.Set("Custom"); err != nil || mode != AudioCustom {
		t.Errorf("Set(Custom) mode=%q err=%v", mode, err)
	}
	if err := v.Set("loud"); err == nil {
		t.Error("Set(loud) = nil, want error")
	}
	var fill FillMode
	if err := NewFillModeValue(&fill).Set("pad"); err != nil || fill != FillPad {
		t.Errorf("fill = %q err=%v", fill, err)
	}
}
