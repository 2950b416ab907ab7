package main

import (
	"fmt"

	"github.com/bendalab/audioio"
	"github.com/bendalab/audioio/playback"
	"github.com/spf13/cobra"
)

// playCmd represents the play command
var playCmd = &cobra.Command{
	Use:   "play files...",
	Short: "Play audio files on the default sound device",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		volume, _ := cmd.Flags().GetFloat32("volume")
		device, _ := cmd.Flags().GetString("device")
		output, _ := cmd.Flags().GetString("output-device")
		latency, _ := cmd.Flags().GetDuration("latency")

		opts := []playback.Option{playback.Logger(log)}
		if device != "" {
			opts = append(opts, playback.Device(device))
		}
		if output != "" {
			opts = append(opts, playback.Output(output))
		}
		if latency > 0 {
			opts = append(opts, playback.Latency(latency))
		}
		player, err := playback.NewPlayer(opts...)
		if err != nil {
			return err
		}
		defer player.Close()
		player.SetVolume(volume)

		for _, path := range args {
			data, err := audioio.Load(path)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %.3f s, %.0f Hz, %d channel(s)\n",
				path, data.Duration().Seconds(), data.Rate, data.Channels)
			if err := player.PlayBlocking(data.Buffer, data.Rate, data.Channels); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().Float32P("volume", "V", 1.0, "playback volume")
	playCmd.Flags().StringP("device", "D", "", "device backend to play on")
	playCmd.Flags().StringP("output-device", "O", "", "hardware output device by name")
	playCmd.Flags().DurationP("latency", "L", 0, "desired output latency, e.g. 10ms")
}
