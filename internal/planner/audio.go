package planner

import (
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/backmassage/loopforge/internal/config"
)

// AudioExtensions are the file types accepted as background tracks.
var AudioExtensions = []string{".mp3", ".wav", ".m4a", ".aac", ".flac", ".ogg"}

// AudioPolicy says which tracks a composite render should carry. It is one
// of MixPolicy, ReplacePolicy or CustomPolicy.
type AudioPolicy interface {
	audioPolicy()
}

// MixPolicy keeps the original track and adds a background track.
type MixPolicy struct {
	OriginalPercent float64
	NewPercent      float64
}

// ReplacePolicy drops the original track in favor of a background track.
// When no background track resolves the original is kept.
type ReplacePolicy struct {
	OriginalPercent float64
	NewPercent      float64
}

// CustomPolicy toggles each track independently. Both off means silence.
type CustomPolicy struct {
	KeepOriginal    bool
	UseNew          bool
	OriginalPercent float64
	NewPercent      float64
}

func (MixPolicy) audioPolicy()     {}
func (ReplacePolicy) audioPolicy() {}
func (CustomPolicy) audioPolicy()  {}

// PolicyFromConfig maps the [audio] section onto a policy.
func PolicyFromConfig(a config.Audio) AudioPolicy {
	switch a.Mode {
	case config.AudioReplace:
		return ReplacePolicy{OriginalPercent: a.OriginalPercent, NewPercent: a.NewPercent}
	case config.AudioCustom:
		return CustomPolicy{
			KeepOriginal:    a.KeepOriginal,
			UseNew:          a.UseNew,
			OriginalPercent: a.OriginalPercent,
			NewPercent:      a.NewPercent,
		}
	default:
		return MixPolicy{OriginalPercent: a.OriginalPercent, NewPercent: a.NewPercent}
	}
}

// Volume is the shared part of the volume chain.
type Volume struct {
	Master      float64 // Clamped to [0, 10].
	BasePercent float64 // Clamped to [0, 1000].
}

// VolumeFromConfig reads the master and base settings from [audio].
func VolumeFromConfig(a config.Audio) Volume {
	return Volume{Master: a.MasterVolume, BasePercent: a.BasePercent}
}

// Multiplier returns master × base% × track% with each factor clamped and
// the product clamped to [0, 10].
func (v Volume) Multiplier(trackPercent float64) float64 {
	m := clampFloat(v.Master, 0, 10) *
		clampFloat(v.BasePercent, 0, 1000) / 100 *
		clampFloat(trackPercent, 0, 1000) / 100
	return clampFloat(m, 0, 10)
}

// TrackSource says where an audio track comes from.
type TrackSource int

const (
	TrackOriginal   TrackSource = iota // The primary clip's own audio.
	TrackBackground                    // A file from the candidate folder.
)

// AudioTrack is one input of the final audio mix.
type AudioTrack struct {
	Source     TrackSource
	Path       string // Empty for TrackOriginal.
	Multiplier float64
}

// AudioSelection is the ordered list of tracks to mix. The first track is
// the duration reference for the mix. An empty selection renders silence.
type AudioSelection struct {
	Tracks []AudioTrack
}

// Silent reports whether the selection renders a silent bed.
func (s AudioSelection) Silent() bool { return len(s.Tracks) == 0 }

// UsesOriginal reports whether the primary clip's audio is mixed in.
func (s AudioSelection) UsesOriginal() bool {
	for _, t := range s.Tracks {
		if t.Source == TrackOriginal {
			return true
		}
	}
	return false
}

func (s AudioSelection) String() string {
	if s.Silent() {
		return "silence"
	}
	parts := make([]string, 0, len(s.Tracks))
	for _, t := range s.Tracks {
		name := "original"
		if t.Source == TrackBackground {
			name = filepath.Base(t.Path)
		}
		parts = append(parts, fmt.Sprintf("%s x%.2f", name, t.Multiplier))
	}
	return strings.Join(parts, " + ")
}

// ListFunc lists candidate track paths in dir. Implementations return them
// in lexicographic order and a nil slice for a missing directory.
type ListFunc func(dir string) ([]string, error)

// CandidatePool is where background tracks come from.
type CandidatePool struct {
	Dir         string
	Override    string
	PrimaryName string // Stem of the folder's designated primary file.
	Random      bool

	List   ListFunc          // Default: ListCandidates.
	Exists func(string) bool // Default: regular file check.
	Rand   *rand.Rand        // Default: the math/rand/v2 global source.
}

// PoolFromConfig builds a pool from [audio] with default collaborators.
func PoolFromConfig(a config.Audio) CandidatePool {
	return CandidatePool{
		Dir:         a.Dir,
		Override:    a.Override,
		PrimaryName: a.PrimaryName,
		Random:      a.Random,
	}
}

// Resolve picks one background track. Order: a random folder entry when
// random is on, the override file, the folder's primary file, the
// lexicographically first entry. An empty path means nothing resolved.
func (p CandidatePool) Resolve() (string, error) {
	list := p.List
	if list == nil {
		list = ListCandidates
	}
	exists := p.Exists
	if exists == nil {
		exists = isRegularFile
	}

	var files []string
	if p.Dir != "" {
		var err error
		if files, err = list(p.Dir); err != nil {
			return "", fmt.Errorf("list audio candidates in %s: %w", p.Dir, err)
		}
	}

	if p.Random && len(files) > 0 {
		var i int
		if p.Rand != nil {
			i = p.Rand.IntN(len(files))
		} else {
			i = rand.IntN(len(files))
		}
		return files[i], nil
	}
	if p.Override != "" && exists(p.Override) {
		return p.Override, nil
	}
	if p.PrimaryName != "" {
		for _, f := range files {
			stem := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
			if strings.EqualFold(stem, p.PrimaryName) {
				return f, nil
			}
		}
	}
	if len(files) > 0 {
		return files[0], nil
	}
	return "", nil
}

// SelectAudio decides the tracks of a composite render. It never fails
// because nothing is available: that case yields a silent selection.
func SelectAudio(originalAvailable bool, policy AudioPolicy, pool CandidatePool, vol Volume) (AudioSelection, error) {
	var keepOriginal, useNew, originalFallback bool
	var origPct, newPct float64

	switch p := policy.(type) {
	case MixPolicy:
		keepOriginal, useNew = true, true
		origPct, newPct = p.OriginalPercent, p.NewPercent
	case ReplacePolicy:
		useNew, originalFallback = true, true
		origPct, newPct = p.OriginalPercent, p.NewPercent
	case CustomPolicy:
		keepOriginal, useNew = p.KeepOriginal, p.UseNew
		origPct, newPct = p.OriginalPercent, p.NewPercent
	default:
		return AudioSelection{}, fmt.Errorf("unknown audio policy %T", policy)
	}

	var track string
	if useNew {
		var err error
		if track, err = pool.Resolve(); err != nil {
			return AudioSelection{}, err
		}
	}
	if originalFallback && track == "" {
		keepOriginal = true
	}

	var sel AudioSelection
	if keepOriginal && originalAvailable {
		sel.Tracks = append(sel.Tracks, AudioTrack{Source: TrackOriginal, Multiplier: vol.Multiplier(origPct)})
	}
	if track != "" {
		sel.Tracks = append(sel.Tracks, AudioTrack{Source: TrackBackground, Path: track, Multiplier: vol.Multiplier(newPct)})
	}
	return sel, nil
}

// ListCandidates returns the audio files directly inside dir, sorted. A
// missing directory yields no candidates.
func ListCandidates(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if hasExt(e.Name(), AudioExtensions) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

func isRegularFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
