package cmd

import (
	"fmt"

	dotenv "github.com/dsh2dsh/expx-dotenv"
	"github.com/spf13/cobra"

	"github.com/dsh2dsh/fecfile/cmd/db"
)

var rootCmd = cobra.Command{
	Use:   "fecfile",
	Short: "Parse and export FEC electronic filings",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadEnvs()
	},
}

func init() {
	rootCmd.AddCommand(&db.Cmd)
}

func Execute(version string) {
	rootCmd.Version = version
	cobra.CheckErr(rootCmd.Execute())
}

func loadEnvs() error {
	if err := dotenv.New().WithDepth(1).Load(); err != nil {
		return fmt.Errorf("load fecfile envs: %w", err)
	}
	return nil
}
