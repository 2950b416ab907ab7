package main

import (
	"fmt"
	"os"

	"github.com/bendalab/audioio/backend"
	"github.com/spf13/cobra"
)

// modulesCmd represents the modules command
var modulesCmd = &cobra.Command{
	Use:   "modules [backend]",
	Short: "List audio backends and their availability",
	Long: `List audio backends and their availability.

Without argument a status table of all known backends is printed.
With a backend name as argument, instructions for installing that
backend are printed.
`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			name := args[0]
			if backend.IsAvailable(name) {
				fmt.Printf("backend %s is installed and available\n", name)
				return nil
			}
			if backend.Get(name) != nil {
				if err := backend.ProbeError(name); err != nil {
					fmt.Printf("backend %s is installed but not functional: %v\n\n", name, err)
				}
			}
			instructions := backend.InstallInstructions(name)
			if instructions == "" {
				return fmt.Errorf("unknown backend %q", name)
			}
			fmt.Println(instructions)
			return nil
		}
		backend.List(os.Stdout)
		if missing := backend.Missing(); len(missing) > 0 {
			fmt.Println()
			fmt.Println("recommended but not installed:", missing)
			fmt.Println("run 'audioio modules <name>' for installation instructions")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modulesCmd)
}
