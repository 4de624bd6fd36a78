package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// applyEnv copies LOOPFORGE_* environment overrides into c. Values that do
// not parse are left for Validate to report through their config field.
func (c *Config) applyEnv() {
	if value, ok := os.LookupEnv("LOOPFORGE_OUTPUT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.OutputDir = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("LOOPFORGE_WORK_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.WorkDir = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("LOOPFORGE_WORKERS"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			c.Batch.Workers = n
		}
	}
	if value, ok := os.LookupEnv("LOOPFORGE_AUDIO_MODE"); ok && strings.TrimSpace(value) != "" {
		c.Audio.Mode = AudioMode(value)
	}
	if value, ok := os.LookupEnv("LOOPFORGE_LOG_FILE"); ok {
		c.Logging.File = strings.TrimSpace(value)
	}
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.Audio.Mode = AudioMode(strings.ToLower(strings.TrimSpace(string(c.Audio.Mode))))
	c.Stack.Fill = FillMode(strings.ToLower(strings.TrimSpace(string(c.Stack.Fill))))
	c.Extract.Format = AudioFormat(strings.ToLower(strings.TrimSpace(string(c.Extract.Format))))
	c.Logging.Color = ColorMode(strings.ToLower(strings.TrimSpace(string(c.Logging.Color))))
	if c.Logging.Color == "" {
		c.Logging.Color = ColorAuto
	}
	c.Audio.PrimaryName = strings.TrimSpace(c.Audio.PrimaryName)

	var err error
	if c.Encode.AudioBitrate, err = normalizeBitrate(c.Encode.AudioBitrate); err != nil {
		return fmt.Errorf("encode.audio_bitrate: %w", err)
	}
	if c.Extract.Bitrate, err = normalizeBitrate(c.Extract.Bitrate); err != nil {
		return fmt.Errorf("extract.bitrate: %w", err)
	}
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name string
		p    *string
	}{
		{"paths.output_dir", &c.Paths.OutputDir},
		{"paths.work_dir", &c.Paths.WorkDir},
		{"ambient.raw_dir", &c.Ambient.RawDir},
		{"ambient.cover_image", &c.Ambient.CoverImage},
		{"stack.primary_dir", &c.Stack.PrimaryDir},
		{"stack.background_dir", &c.Stack.BackgroundDir},
		{"mux.audio_dir", &c.Mux.AudioDir},
		{"mux.video_dir", &c.Mux.VideoDir},
		{"mux.stills_dir", &c.Mux.StillsDir},
		{"extract.input_dir", &c.Extract.InputDir},
		{"audio.dir", &c.Audio.Dir},
		{"audio.override", &c.Audio.Override},
		{"logging.file", &c.Logging.File},
	}
	for _, f := range fields {
		expanded, err := expandPath(NormalizeDirArg(strings.TrimSpace(*f.p)))
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.p = expanded
	}
	if c.Paths.WorkDir == "" {
		c.Paths.WorkDir = c.Paths.OutputDir
	}
	return nil
}

// normalizeBitrate validates and canonicalizes user bitrate input.
// Accepted forms: "192", "192k", "192K", "192kbps". Output is "<n>k".
func normalizeBitrate(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", errors.New("bitrate must not be empty")
	}
	if strings.HasSuffix(s, "kbps") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "kbps"))
	} else if strings.HasSuffix(s, "k") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "k"))
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return "", fmt.Errorf("invalid bitrate %q (use positive Kbps value, e.g. 192k)", raw)
	}
	return fmt.Sprintf("%dk", n), nil
}
