package main

import (
	"github.com/spf13/cobra"

	"github.com/backmassage/loopforge/internal/config"
)

func newRootCommand() *cobra.Command {
	ctx := &commandContext{color: config.ColorAuto}

	rootCmd := &cobra.Command{
		Use:           "loopforge",
		Short:         "Batch video composer with a per-file size budget",
		Version:       version + " (" + commit + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&ctx.configPath, "config", "c", "", "Configuration file path")
	pf.BoolVarP(&ctx.verbose, "verbose", "v", false, "Show ffmpeg output and debug lines")
	pf.Var(config.NewColorModeValue(&ctx.color), "color", "Colorize output")
	pf.StringVar(&ctx.logFile, "log", "", "Also append log lines to this file")
	pf.BoolVarP(&ctx.dryRun, "dry-run", "n", false, "Plan every item without writing files")
	pf.IntVarP(&ctx.workers, "workers", "j", 0, "Items processed in parallel")
	pf.StringVarP(&ctx.outputDir, "output", "o", "", "Output directory")
	ctx.flags = pf

	rootCmd.AddCommand(newAmbientCommand(ctx))
	rootCmd.AddCommand(newStackCommand(ctx))
	rootCmd.AddCommand(newMuxCommand(ctx))
	rootCmd.AddCommand(newExtractCommand(ctx))
	rootCmd.AddCommand(newAnalyzeCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
