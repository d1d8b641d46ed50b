package commands

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"gwalerts/internal/archive"
	"gwalerts/internal/config"
	"gwalerts/internal/moc"
	"gwalerts/internal/skymap"
)

// writeMOCCmd is the one-shot path: convert an already-downloaded
// multi-order skymap into MOC files, no broker involved.
func writeMOCCmd() *cobra.Command {
	var (
		directory string
		contours  string
		logfile   string
	)

	cmd := &cobra.Command{
		Use:   "writemoc <skymap.fits>",
		Short: "Write MOC contour files from a multi-order skymap",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, closeLog, err := newLogger(config.Log{File: logfile, Level: "info"})
			if err != nil {
				return err
			}
			defer closeLog()

			m, err := skymap.ReadFile(args[0])
			if err != nil {
				return err
			}
			log.Info().
				Int("pixels", len(m.Pixels)).
				Str("skymap", args[0]).
				Msg("skymap read")

			if err := archive.EnsureDir(directory); err != nil {
				return err
			}

			for _, part := range strings.Split(contours, ",") {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				level, err := strconv.ParseFloat(part, 64)
				if err != nil {
					log.Error().Str("contour", part).Msg("contour is not a number")
					continue
				}
				cut, err := moc.Contour(m, level/100)
				if err != nil {
					log.Error().Err(err).Float64("contour", level).Msg("contour cut failed")
					continue
				}

				out := filepath.Join(directory, archive.FormatLevel(level)+".moc")
				if err := cut.WriteFile(out); err != nil {
					return err
				}
				log.Info().
					Float64("contour", level).
					Float64("area_sq_deg", cut.AreaSqDeg).
					Float64("sum_prob", cut.SumProb).
					Str("path", out).
					Msg("MOC written")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&directory, "directory", "/tmp", "directory to write MOC files into")
	cmd.Flags().StringVar(&contours, "contours", "90", "comma-separated contour percentages, e.g. 90,50,10")
	cmd.Flags().StringVar(&logfile, "logfile", "", "also append JSON log lines to this file")
	return cmd
}
