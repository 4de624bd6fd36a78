package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/backmassage/loopforge/internal/config"
	"github.com/backmassage/loopforge/internal/logging"
	"github.com/backmassage/loopforge/internal/pipeline"
)

// flagOverrides collects overrides for the flags of one command that the
// user actually set.
type flagOverrides struct {
	flags *pflag.FlagSet
	list  []config.Override
}

func (f *flagOverrides) on(name string, o config.Override) {
	f.list = append(f.list, func(cfg *config.Config) {
		if f.flags.Changed(name) {
			o(cfg)
		}
	})
}

func newAmbientCommand(ctx *commandContext) *cobra.Command {
	var (
		rawDir, cover      string
		minutes, coverSecs float64
		width, height      int
		deleteSources      bool
	)
	cmd := &cobra.Command{
		Use:   "ambient",
		Short: "Loop every raw clip forward and reverse behind a cover image",
		Args:  cobra.NoArgs,
	}
	f := &flagOverrides{flags: cmd.Flags()}
	cmd.Flags().StringVar(&rawDir, "raw", "", "Folder of raw clips")
	cmd.Flags().StringVar(&cover, "cover", "", "Cover image shown before the loop")
	cmd.Flags().Float64Var(&minutes, "minutes", 0, "Length of each output in minutes")
	cmd.Flags().Float64Var(&coverSecs, "cover-seconds", 0, "How long the cover is shown")
	cmd.Flags().IntVar(&width, "width", 0, "Output width (0 keeps the source frame)")
	cmd.Flags().IntVar(&height, "height", 0, "Output height (0 keeps the source frame)")
	cmd.Flags().BoolVar(&deleteSources, "delete", false, "Delete each raw clip after its output is written")
	f.on("raw", func(c *config.Config) { c.Ambient.RawDir = rawDir })
	f.on("cover", func(c *config.Config) { c.Ambient.CoverImage = cover })
	f.on("minutes", func(c *config.Config) { c.Ambient.TotalMinutes = minutes })
	f.on("cover-seconds", func(c *config.Config) { c.Ambient.CoverSeconds = coverSecs })
	f.on("width", func(c *config.Config) { c.Ambient.Width = width })
	f.on("height", func(c *config.Config) { c.Ambient.Height = height })
	f.on("delete", func(c *config.Config) { c.Ambient.DeleteSources = deleteSources })

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return ctx.runJob(
			func(c context.Context, r *pipeline.Runner) (pipeline.RunStats, error) { return r.RunAmbient(c) },
			func(cfg config.Config) []string { return []string{cfg.Ambient.RawDir} },
			f.list...)
	}
	return cmd
}

func newStackCommand(ctx *commandContext) *cobra.Command {
	var (
		primaryDir, backgroundDir, musicDir, track string
		fill                                       = config.FillCrop
		audioMode                                  = config.AudioMix
		zoom                                       int
		bottom, noRandom, deleteSources            bool
	)
	cmd := &cobra.Command{
		Use:   "stack",
		Short: "Stack each primary clip over a background clip for vertical video",
		Args:  cobra.NoArgs,
	}
	f := &flagOverrides{flags: cmd.Flags()}
	cmd.Flags().StringVar(&primaryDir, "primary", "", "Folder of primary clips")
	cmd.Flags().StringVar(&backgroundDir, "background", "", "Folder of background clips")
	cmd.Flags().Var(config.NewFillModeValue(&fill), "fill", "How the background fills its panel")
	cmd.Flags().IntVar(&zoom, "zoom", 0, "Background zoom percent in fill mode")
	cmd.Flags().BoolVar(&bottom, "primary-bottom", false, "Put the primary clip in the lower panel")
	cmd.Flags().BoolVar(&noRandom, "no-random-background", false, "Always use the first background clip")
	cmd.Flags().Var(config.NewAudioModeValue(&audioMode), "audio", "Audio policy")
	cmd.Flags().StringVar(&musicDir, "music", "", "Folder of background tracks")
	cmd.Flags().StringVar(&track, "track", "", "Background track used when random selection is off")
	cmd.Flags().BoolVar(&deleteSources, "delete", false, "Delete each primary clip after its output is written")
	f.on("primary", func(c *config.Config) { c.Stack.PrimaryDir = primaryDir })
	f.on("background", func(c *config.Config) { c.Stack.BackgroundDir = backgroundDir })
	f.on("fill", func(c *config.Config) { c.Stack.Fill = fill })
	f.on("zoom", func(c *config.Config) { c.Stack.ZoomPercent = zoom })
	f.on("primary-bottom", func(c *config.Config) { c.Stack.PrimaryOnTop = !bottom })
	f.on("no-random-background", func(c *config.Config) { c.Stack.RandomBackground = !noRandom })
	f.on("audio", func(c *config.Config) { c.Audio.Mode = audioMode })
	f.on("music", func(c *config.Config) { c.Audio.Dir = musicDir })
	f.on("track", func(c *config.Config) { c.Audio.Override = track })
	f.on("delete", func(c *config.Config) { c.Stack.DeleteSources = deleteSources })

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return ctx.runJob(
			func(c context.Context, r *pipeline.Runner) (pipeline.RunStats, error) { return r.RunStack(c) },
			func(cfg config.Config) []string { return []string{cfg.Stack.PrimaryDir, cfg.Stack.BackgroundDir} },
			f.list...)
	}
	return cmd
}

func newMuxCommand(ctx *commandContext) *cobra.Command {
	var (
		audioDir, videoDir, stillsDir string
		speed, stillSecs              float64
		deleteAudio, deleteVideo      bool
	)
	cmd := &cobra.Command{
		Use:   "mux",
		Short: "Lay each audio file over a looped, slowed video and still images",
		Args:  cobra.NoArgs,
	}
	f := &flagOverrides{flags: cmd.Flags()}
	cmd.Flags().StringVar(&audioDir, "audio-dir", "", "Folder of audio files")
	cmd.Flags().StringVar(&videoDir, "video-dir", "", "Folder of videos to loop")
	cmd.Flags().StringVar(&stillsDir, "stills", "", "Folder of still images appended at the end")
	cmd.Flags().Float64Var(&speed, "speed", 0, "Playback speed of the looped video (0.8 = 20% slower)")
	cmd.Flags().Float64Var(&stillSecs, "still-seconds", 0, "How long each still image is shown")
	cmd.Flags().BoolVar(&deleteAudio, "delete-audio", false, "Delete each audio file after its output is written")
	cmd.Flags().BoolVar(&deleteVideo, "delete-video", false, "Delete videos matched by name once the batch is done")
	f.on("audio-dir", func(c *config.Config) { c.Mux.AudioDir = audioDir })
	f.on("video-dir", func(c *config.Config) { c.Mux.VideoDir = videoDir })
	f.on("stills", func(c *config.Config) { c.Mux.StillsDir = stillsDir })
	f.on("speed", func(c *config.Config) { c.Mux.Speed = speed })
	f.on("still-seconds", func(c *config.Config) { c.Mux.StillSeconds = stillSecs })
	f.on("delete-audio", func(c *config.Config) { c.Mux.DeleteAudio = deleteAudio })
	f.on("delete-video", func(c *config.Config) { c.Mux.DeleteVideo = deleteVideo })

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return ctx.runJob(
			func(c context.Context, r *pipeline.Runner) (pipeline.RunStats, error) { return r.RunMux(c) },
			func(cfg config.Config) []string { return []string{cfg.Mux.AudioDir, cfg.Mux.VideoDir} },
			f.list...)
	}
	return cmd
}

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var (
		inputDir, bitrate string
		format            = config.FormatMP3
	)
	cmd := &cobra.Command{
		Use:   "extract-audio [files...]",
		Short: "Write the first audio track of each video to an audio file",
		Long: "Extracts audio from the given files, or from every video in the " +
			"configured input folder when no files are given.",
	}
	f := &flagOverrides{flags: cmd.Flags()}
	cmd.Flags().StringVar(&inputDir, "input", "", "Folder scanned when no files are given")
	cmd.Flags().Var(config.NewAudioFormatValue(&format), "format", "Output format")
	cmd.Flags().StringVar(&bitrate, "bitrate", "", "Bitrate for lossy formats (e.g. 192k)")
	f.on("input", func(c *config.Config) { c.Extract.InputDir = inputDir })
	f.on("format", func(c *config.Config) { c.Extract.Format = format })
	f.on("bitrate", func(c *config.Config) { c.Extract.Bitrate = bitrate })

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		files, err := absFiles(args)
		if err != nil {
			return err
		}
		sources := func(cfg config.Config) []string {
			if len(files) > 0 {
				return nil
			}
			return []string{cfg.Extract.InputDir}
		}
		return ctx.runJob(
			func(c context.Context, r *pipeline.Runner) (pipeline.RunStats, error) { return r.RunExtract(c, files) },
			sources, f.list...)
	}
	return cmd
}

// absFiles checks that every named input exists and makes it absolute.
func absFiles(args []string) ([]string, error) {
	files := make([]string, 0, len(args))
	for _, a := range args {
		abs, err := filepath.Abs(a)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", a, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("input %s is a directory; use --input for folders", a)
		}
		files = append(files, abs)
	}
	return files, nil
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [dir]",
		Short: "Probe a folder of clips and preview what an ambient run would do",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := ctx.setup()
			if err != nil {
				return err
			}
			defer log.Close()
			dir := cfg.Ambient.RawDir
			if len(args) == 1 {
				dir = args[0]
			}
			return analyze(cmd.Context(), cfg, log, dir)
		},
	}
}

func analyze(ctx context.Context, cfg config.Config, log *logging.Logger, dir string) error {
	if _, err := pipeline.New(cfg, log).Analyze(ctx, dir); err != nil {
		log.Error("%v", err)
		return errReported
	}
	return nil
}
