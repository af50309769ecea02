package main

import (
	"errors"
	"fmt"

	"familytasks/internal/model"
	"familytasks/internal/service"

	"github.com/spf13/cobra"
)

var (
	generateFamily string
	generateDate   string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Materialize today's daily tasks for every family, or one with --family",
	RunE: func(cmd *cobra.Command, args []string) error {
		if generateDate != "" {
			if generateFamily == "" {
				return errors.New("--date requires --family")
			}
			if err := model.ValidateDate(generateDate); err != nil {
				return err
			}
		}

		c, err := components()
		if err != nil {
			return err
		}
		defer c.Close()

		ctx := service.WithSource(cmd.Context(), service.SourceCLI)
		out := cmd.OutOrStdout()

		if generateDate != "" {
			res, err := c.Materializer.GenerateForDate(ctx, generateFamily, generateDate)
			if err != nil {
				return err
			}
			renderResult(out, generateFamily, res)
			return nil
		}

		var summary *service.Summary
		if generateFamily != "" {
			summary = c.Batch.ProcessFamily(ctx, generateFamily)
		} else {
			summary, err = c.Batch.ProcessAllFamilies(ctx)
			if err != nil {
				return err
			}
		}
		renderSummary(out, summary)
		if len(summary.Errors) > 0 {
			return fmt.Errorf("%d of %d families failed", len(summary.Errors), summary.TotalFamilies)
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVarP(&generateFamily, "family", "f", "", "only this family")
	generateCmd.Flags().StringVar(&generateDate, "date", "", "generate for YYYY-MM-DD instead of today (needs --family)")
}
