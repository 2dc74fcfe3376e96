// Package cmd holds the prepai command line: the gateway server and the
// terminal interview runner.
package cmd

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var projectRoot string

	root := &cobra.Command{
		Use:           "prepai",
		Short:         "Mock interview practice with spoken answers and AI scoring",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			// A missing .env is fine; the environment may already be set.
			_ = godotenv.Load(filepath.Join(projectRoot, ".env"))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&projectRoot, "root", defaultRoot(), "project root holding config/ and logs/")

	root.AddCommand(newServeCmd(&projectRoot))
	root.AddCommand(newInterviewCmd(&projectRoot))
	return root
}

func defaultRoot() string {
	if root := os.Getenv("PREPAI_ROOT"); root != "" {
		return root
	}
	return "."
}
