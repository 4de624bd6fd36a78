package config

import (
	"errors"
	"fmt"
)

// Validate checks enum fields and numeric ranges. It does not touch the
// filesystem; missing folders are reported by the job that needs them.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateEncode(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateAmbient(); err != nil {
		return err
	}
	if err := c.validateStack(); err != nil {
		return err
	}
	if err := c.validateMux(); err != nil {
		return err
	}
	if err := c.validateExtract(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be at least 1 (got %d)", c.Batch.Workers)
	}
	return nil
}

func (c *Config) validateEncode() error {
	e := c.Encode
	if e.VideoCodec == "" {
		return errors.New("encode.video_codec must be set")
	}
	if e.FPS < 1 || e.FPS > 240 {
		return fmt.Errorf("encode.fps must be between 1 and 240 (got %d)", e.FPS)
	}
	if e.CRF < 0 || e.CRF > 51 {
		return fmt.Errorf("encode.crf must be between 0 and 51 (got %d)", e.CRF)
	}
	if e.Threads < 0 {
		return fmt.Errorf("encode.threads must not be negative (got %d)", e.Threads)
	}
	if e.SampleRate <= 0 {
		return fmt.Errorf("encode.sample_rate must be positive (got %d)", e.SampleRate)
	}
	if e.SizeCapGiB <= 0 {
		return fmt.Errorf("encode.size_cap_gib must be positive (got %g)", e.SizeCapGiB)
	}
	if e.SizeSafety <= 0 || e.SizeSafety > 1 {
		return fmt.Errorf("encode.size_safety must be in (0, 1] (got %g)", e.SizeSafety)
	}
	if e.MinVideoKbps <= 0 {
		return fmt.Errorf("encode.min_video_kbps must be positive (got %d)", e.MinVideoKbps)
	}
	if e.TimeoutMinutes <= 0 {
		return fmt.Errorf("encode.timeout_minutes must be positive (got %d)", e.TimeoutMinutes)
	}
	if e.Retries < 0 {
		return fmt.Errorf("encode.retries must not be negative (got %d)", e.Retries)
	}
	return nil
}

func (c *Config) validateAudio() error {
	switch c.Audio.Mode {
	case AudioMix, AudioReplace, AudioCustom:
		// valid
	default:
		return fmt.Errorf("invalid audio.mode %q (use 'mix', 'replace' or 'custom')", c.Audio.Mode)
	}
	if c.Audio.MasterVolume < 0 {
		return fmt.Errorf("audio.master_volume must not be negative (got %g)", c.Audio.MasterVolume)
	}
	for name, v := range map[string]float64{
		"audio.base_percent":     c.Audio.BasePercent,
		"audio.original_percent": c.Audio.OriginalPercent,
		"audio.new_percent":      c.Audio.NewPercent,
	} {
		if v < 0 {
			return fmt.Errorf("%s must not be negative (got %g)", name, v)
		}
	}
	return nil
}

func (c *Config) validateAmbient() error {
	if c.Ambient.TotalMinutes <= 0 {
		return fmt.Errorf("ambient.total_minutes must be positive (got %g)", c.Ambient.TotalMinutes)
	}
	if c.Ambient.CoverSeconds < 0 {
		return fmt.Errorf("ambient.cover_seconds must not be negative (got %g)", c.Ambient.CoverSeconds)
	}
	return validateOptionalDims("ambient", c.Ambient.Width, c.Ambient.Height)
}

func (c *Config) validateStack() error {
	switch c.Stack.Fill {
	case FillPad, FillCrop:
		// valid
	default:
		return fmt.Errorf("invalid stack.fill %q (use 'pad' or 'fill')", c.Stack.Fill)
	}
	if c.Stack.ZoomPercent < 100 || c.Stack.ZoomPercent > 400 {
		return fmt.Errorf("stack.zoom_percent must be between 100 and 400 (got %d)", c.Stack.ZoomPercent)
	}
	if err := validateDims("stack", c.Stack.Width, c.Stack.Height); err != nil {
		return err
	}
	if c.Stack.Height%4 != 0 {
		return fmt.Errorf("stack.height must be divisible by 4 so each panel stays even (got %d)", c.Stack.Height)
	}
	return nil
}

func (c *Config) validateMux() error {
	if c.Mux.Speed <= 0 {
		return fmt.Errorf("mux.speed must be positive (got %g)", c.Mux.Speed)
	}
	if c.Mux.StillSeconds <= 0 {
		return fmt.Errorf("mux.still_seconds must be positive (got %g)", c.Mux.StillSeconds)
	}
	return validateOptionalDims("mux", c.Mux.Width, c.Mux.Height)
}

func (c *Config) validateExtract() error {
	switch c.Extract.Format {
	case FormatMP3, FormatWAV, FormatAAC, FormatFLAC, FormatOGG:
		return nil
	default:
		return fmt.Errorf("invalid extract.format %q (use mp3, wav, aac, flac or ogg)", c.Extract.Format)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Color {
	case ColorAuto, ColorAlways, ColorNever:
		return nil
	default:
		return fmt.Errorf("invalid logging.color %q (use 'auto', 'always' or 'never')", c.Logging.Color)
	}
}

func validateDims(section string, w, h int) error {
	if w <= 0 || h <= 0 || w%2 != 0 || h%2 != 0 {
		return fmt.Errorf("%s.width and %s.height must be positive even numbers (got %dx%d)", section, section, w, h)
	}
	return nil
}

// validateOptionalDims accepts 0x0 as "match the source".
func validateOptionalDims(section string, w, h int) error {
	if w == 0 && h == 0 {
		return nil
	}
	return validateDims(section, w, h)
}
