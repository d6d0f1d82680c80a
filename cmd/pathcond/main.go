package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pathcond",
		Short: "Builds and checks path conditions",
		Long: `Pathcond maintains the path condition of symbolically executed paths.

Each path is described by a YAML script of constraint steps. Facts are written
as s-expressions, e.g. (ult (read x 32) (const 10 32)).`,
		SilenceUsage: true,
	}
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newReplayCmd())
	return cmd
}
