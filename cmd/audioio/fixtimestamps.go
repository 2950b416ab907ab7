package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bendalab/audioio/backend"
	"github.com/bendalab/audioio/metadata/riffmeta"
	"github.com/spf13/cobra"
)

// fixtimestampsCmd represents the fixtimestamps command
var fixtimestampsCmd = &cobra.Command{
	Use:   "fixtimestamps files...",
	Short: "Fix the time stamps of a series of recordings",
	Long: `Fix the time stamps of a series of consecutive recordings.

The first file gets the start time given with --start. Each
following file gets the start time of its predecessor advanced by
the duration of the predecessor. Time stamps are patched in place in
the RIFF metadata chunks, and files whose names contain the time
stamp are renamed accordingly.
`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		startStr, _ := cmd.Flags().GetString("start")
		dryRun, _ := cmd.Flags().GetBool("no-modify")

		start, ok := riffmeta.ParseDatetime(startStr)
		if !ok {
			var err error
			start, err = time.Parse("2006-01-02T15:04:05", startStr)
			if err != nil {
				return fmt.Errorf("invalid start time %q", startStr)
			}
		}

		files := append([]string(nil), args...)
		sort.Strings(files)

		for _, path := range files {
			r, _, err := backend.OpenFile(path)
			if err != nil {
				return err
			}
			duration := time.Duration(float64(r.Frames()) / r.Rate() * float64(time.Second))
			r.Close()

			dir, base := filepath.Split(path)
			newBase := riffmeta.ReplaceDatetime(base, start)
			if dryRun {
				fmt.Printf("%s: start time %s", path, start.Format("2006-01-02T15:04:05"))
				if newBase != base {
					fmt.Printf(", rename to %s", newBase)
				}
				fmt.Println()
			} else {
				if _, _, err := riffmeta.PatchTimes(path, start); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if newBase != base {
					if err := os.Rename(path, filepath.Join(dir, newBase)); err != nil {
						return err
					}
				}
				log.Info().Str("file", newBase).
					Time("start", start).Msg("time stamps fixed")
			}
			start = start.Add(duration)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fixtimestampsCmd)
	fixtimestampsCmd.Flags().StringP("start", "s", "",
		"start time of the first file (YYYY-MM-DDTHH:MM:SS)")
	fixtimestampsCmd.Flags().BoolP("no-modify", "n", false,
		"only print what would be done")
	fixtimestampsCmd.MarkFlagRequired("start")
}
