package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var importCmd = &cobra.Command{
	Use:   "import FILE...",
	Short: "Load record JSON files into the store",
	Long:  "Each file holds an object with capital_partners, sponsors, and partner_teams arrays. Records keep their ids when present, so an export can be reloaded in place.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initDesk(ctx, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return eris.Wrapf(err, "read %s", path)
			}

			summary, err := env.Service.Import(ctx, data)
			if err != nil {
				return eris.Wrapf(err, "import %s", path)
			}

			zap.L().Info("file imported",
				zap.String("file", path),
				zap.String("records", summary.String()),
			)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
