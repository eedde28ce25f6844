package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harborline/dealdesk-cli/internal/marketdata"
	"github.com/harborline/dealdesk-cli/internal/report"
)

var (
	ratesFormat string
	ratesOutput string
)

var marketCmd = &cobra.Command{
	Use:   "market",
	Short: "Exchange-rate feed operations",
}

var marketSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch configured rate feeds into the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initDesk(ctx, "market")
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := marketdata.NewSyncer(env.Store, cfg.Market).Sync(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("market sync complete",
			zap.Int("sources", result.Sources),
			zap.Int("rates", result.Rates),
			zap.Int("skipped_rows", result.Skipped),
		)
		return nil
	},
}

var marketRatesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Show the synced exchange rates",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initDesk(ctx, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		rates, err := env.Service.Rates(ctx)
		if err != nil {
			return err
		}

		out, err := openOutput(ratesOutput)
		if err != nil {
			return err
		}
		defer out.Close() //nolint:errcheck

		if ratesFormat == "json" {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(rates), "encode rates")
		}

		format, err := report.ParseFormat(ratesFormat)
		if err != nil {
			return err
		}
		return report.WriteRates(out, format, rates)
	},
}

func init() {
	marketRatesCmd.Flags().StringVar(&ratesFormat, "format", "", "output format: table, json, csv, or xlsx (default table)")
	marketRatesCmd.Flags().StringVar(&ratesOutput, "output", "", "write to file instead of stdout")
	marketCmd.AddCommand(marketSyncCmd)
	marketCmd.AddCommand(marketRatesCmd)
	rootCmd.AddCommand(marketCmd)
}
