package main

import (
	"fmt"
	"os"

	"github.com/bendalab/audioio"
	"github.com/bendalab/audioio/backend"
	"github.com/bendalab/audioio/metadata"
	"github.com/spf13/cobra"
)

// metadataCmd represents the metadata command
var metadataCmd = &cobra.Command{
	Use:   "metadata files...",
	Short: "Print metadata and markers of audio files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		onlyMeta, _ := cmd.Flags().GetBool("metadata")
		onlyCues, _ := cmd.Flags().GetBool("cues")
		flat, _ := cmd.Flags().GetBool("flat")

		for _, path := range args {
			if len(args) > 1 {
				fmt.Println(path + ":")
			}
			r, name, err := backend.OpenFile(path)
			if err != nil {
				return err
			}
			rate := r.Rate()
			fmt.Printf("  sampling rate: %.0f Hz\n", rate)
			fmt.Printf("  channels     : %d\n", r.Channels())
			fmt.Printf("  frames       : %d\n", r.Frames())
			fmt.Printf("  duration     : %.3f s\n", float64(r.Frames())/rate)
			fmt.Printf("  encoding     : %s (%s backend)\n", r.Encoding(), name)
			r.Close()
			md, markers, err := audioio.ReadMetadata(path)
			if err != nil {
				return err
			}
			if !onlyCues && len(md) > 0 {
				fmt.Println("metadata:")
				if flat {
					md = metadata.Flatten(md, false, ".")
				}
				metadata.WriteText(os.Stdout, md, "  ", 4)
			}
			if !onlyMeta && len(markers) > 0 {
				fmt.Println("markers:")
				metadata.WriteMarkerTable(os.Stdout, markers, rate)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(metadataCmd)
	metadataCmd.Flags().BoolP("metadata", "m", false, "print metadata only")
	metadataCmd.Flags().BoolP("cues", "c", false, "print markers only")
	metadataCmd.Flags().BoolP("flat", "t", false, "print metadata with flattened keys")
}
