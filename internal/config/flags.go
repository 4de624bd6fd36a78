package config

// pflag.Value adapters so enum types can be bound to cobra flags and
// rejected at parse time instead of at Validate.

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// NewAudioModeValue binds an AudioMode to a flag.
func NewAudioModeValue(p *AudioMode) pflag.Value { return &audioModeValue{p} }

// NewFillModeValue binds a FillMode to a flag.
func NewFillModeValue(p *FillMode) pflag.Value { return &fillModeValue{p} }

// NewAudioFormatValue binds an AudioFormat to a flag.
func NewAudioFormatValue(p *AudioFormat) pflag.Value { return &audioFormatValue{p} }

// NewColorModeValue binds a ColorMode to a flag.
func NewColorModeValue(p *ColorMode) pflag.Value { return &colorModeValue{p} }

type audioModeValue struct{ p *AudioMode }

func (v *audioModeValue) String() string { return string(*v.p) }
func (v *audioModeValue) Type() string   { return "mix|replace|custom" }
func (v *audioModeValue) Set(s string) error {
	switch m := AudioMode(strings.ToLower(s)); m {
	case AudioMix, AudioReplace, AudioCustom:
		*v.p = m
	default:
		return fmt.Errorf("invalid audio mode %q (use 'mix', 'replace' or 'custom')", s)
	}
	return nil
}

type fillModeValue struct{ p *FillMode }

func (v *fillModeValue) String() string { return string(*v.p) }
func (v *fillModeValue) Type() string   { return "pad|fill" }
func (v *fillModeValue) Set(s string) error {
	switch m := FillMode(strings.ToLower(s)); m {
	case FillPad, FillCrop:
		*v.p = m
	default:
		return fmt.Errorf("invalid fill mode %q (use 'pad' or 'fill')", s)
	}
	return nil
}

type audioFormatValue struct{ p *AudioFormat }

func (v *audioFormatValue) String() string { return string(*v.p) }
func (v *audioFormatValue) Type() string   { return "mp3|wav|aac|flac|ogg" }
func (v *audioFormatValue) Set(s string) error {
	switch f := AudioFormat(strings.ToLower(s)); f {
	case FormatMP3, FormatWAV, FormatAAC, FormatFLAC, FormatOGG:
		*v.p = f
	default:
		return fmt.Errorf("invalid format %q (use mp3, wav, aac, flac or ogg)", s)
	}
	return nil
}

type colorModeValue struct{ p *ColorMode }

func (v *colorModeValue) String() string { return string(*v.p) }
func (v *colorModeValue) Type() string   { return "auto|always|never" }
func (v *colorModeValue) Set(s string) error {
	switch m := ColorMode(strings.ToLower(s)); m {
	case ColorAuto, ColorAlways, ColorNever:
		*v.p = m
	default:
		return fmt.Errorf("invalid color mode %q (use 'auto', 'always' or 'never')", s)
	}
	return nil
}
