package cmd

import (
	"github.com/spf13/cobra"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Multi-arch manifest commands",
	Long:  "Assemble and push multi-architecture manifest lists from per-architecture image archives.",
}

func init() {
	rootCmd.AddCommand(manifestCmd)
}
