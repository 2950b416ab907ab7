package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var version = "dev"
var commitHash string

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of audioio",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("audioio Version: %s, %s/%s, Commit: %s\n",
			version, runtime.GOOS, runtime.GOARCH, commitHash)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
