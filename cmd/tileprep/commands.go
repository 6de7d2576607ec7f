package main

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/s1s2water/tileprep/internal/augment"
	"github.com/s1s2water/tileprep/internal/catalog"
	"github.com/s1s2water/tileprep/internal/config"
	"github.com/s1s2water/tileprep/internal/logging"
	"github.com/s1s2water/tileprep/internal/split"
)

// app holds the flags shared by all subcommands and what setup resolves
// from them.
type app struct {
	settingsPath string
	envFile      string
	logLevel     string
	logFile      string

	settings *config.Settings
	log      *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "tileprep",
		Short:         "Prepare Sentinel-1/2 water segmentation scenes as training tiles",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&a.settingsPath, "settings", "s", "", "settings file (.toml, .yaml or .yml)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file with TILEPREP_* overrides")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logFile, "log-file", "", "also write JSON logs to this rotating file")

	root.AddCommand(
		newSplitCmd(a),
		newAugmentCmd(a),
		newSamplesCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup resolves settings (defaults, file, dotenv and environment, flags)
// and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}

	s := config.Default()
	if a.settingsPath != "" {
		var err error
		if s, err = config.Load(a.settingsPath); err != nil {
			return err
		}
	}
	if err := s.ApplyEnv(); err != nil {
		return fmt.Errorf("invalid environment override: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		s.General.LogLevel = a.logLevel
	}
	if cmd.Flags().Changed("log-file") {
		s.General.LogFile = a.logFile
	}

	log, err := logging.New(logging.Options{
		Level:      s.General.LogLevel,
		File:       s.General.LogFile,
		FileConfig: logging.FileConfig{Compress: true},
	})
	if err != nil {
		return err
	}
	a.settings, a.log = s, log
	a.log.Debug("settings resolved",
		zap.String("settings", a.settingsPath),
		zap.Int64("seed", s.General.Seed),
		zap.Int("num_threads", s.General.NumThreads))
	return nil
}

func (a *app) close() {
	if a.log != nil {
		_ = a.log.Sync()
	}
}

func newSplitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "split",
		Short: "Tile every catalog scene into OUT_DIR/<split>/{img,msk}",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			defer a.close()
			if err := a.settings.ValidateSplit(); err != nil {
				return err
			}

			r, err := split.NewRunner(split.NewOptions(a.settings), a.log)
			if err != nil {
				return err
			}
			sum, err := r.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scenes: %d processed, %d skipped; tiles: %d written, %d dropped\n",
				sum.Processed, sum.Skipped, sum.TilesWritten, sum.TilesDropped)
			return nil
		},
	}
}

func newAugmentCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "augment",
		Short: "Write NAUGS random augmentations of every tile in IMG_DIR/MSK_DIR",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			defer a.close()
			if err := a.settings.ValidateAugment(); err != nil {
				return err
			}

			s := a.settings
			r := augment.NewRunner(augment.Options{
				ImgDir:     s.Augment.ImgDir,
				MskDir:     s.Augment.MskDir,
				FDARefDir:  s.Augment.FDARefDir,
				NAugs:      s.Augment.NAugs,
				DEMInBands: s.Augment.DEMInBands,
				Seed:       uint64(s.General.Seed),
				Workers:    s.General.NumThreads,
				Compress:   s.Split.Compress,
			}, a.log)
			sum, err := r.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pairs: %d, skipped: %d; written: %d augmented, %d fda\n",
				sum.Pairs, sum.Skipped, sum.Augmented, sum.FDAWritten)
			return nil
		},
	}
}

func newSamplesCmd(a *app) *cobra.Command {
	var (
		q       catalog.SampleQuery
		exclude string
	)
	cmd := &cobra.Command{
		Use:   "samples <file.geojson>",
		Short: "List the shuffled image/mask pairs of one split of a sample file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			defer a.close()

			for _, e := range strings.Split(exclude, ",") {
				if e = strings.TrimSpace(e); e != "" {
					q.Exclude = append(q.Exclude, e)
				}
			}
			seed := uint64(a.settings.General.Seed)
			images, masks, err := catalog.SplitSamples(args[0], q, rand.New(rand.NewPCG(seed, seed)))
			if err != nil {
				return err
			}
			for i := range images {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", images[i], masks[i])
			}
			a.log.Info("samples listed", zap.String("split", q.SplitValue), zap.Int("samples", len(images)))
			return nil
		},
	}
	cmd.Flags().StringVar(&q.ImageKey, "image-key", "s1_img", "property holding the image id")
	cmd.Flags().StringVar(&q.MaskKey, "mask-key", "s1_msk", "property holding the mask id")
	cmd.Flags().StringVar(&q.SplitKey, "split-key", "split", "property holding the splits of a sample")
	cmd.Flags().StringVar(&q.SplitValue, "split", "train", "split to list")
	cmd.Flags().StringVar(&exclude, "exclude", "", "comma separated substrings of image ids to drop")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tileprep %s\n", Version)
			fmt.Fprintf(out, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
		},
	}
}
