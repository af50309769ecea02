package main

import (
	"fmt"

	"familytasks/internal/model"

	"github.com/spf13/cobra"
)

var (
	templateScope     string
	templateCreatedBy string
)

var templatesCmd = &cobra.Command{
	Use:     "templates",
	Aliases: []string{"tpl"},
	Short:   "Inspect and seed a family's task templates",
}

var listTemplatesCmd = &cobra.Command{
	Use:   "list [familyID]",
	Short: "List a family's templates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := components()
		if err != nil {
			return err
		}
		defer c.Close()

		ctx := cmd.Context()
		var templates []model.TaskTemplate
		switch templateScope {
		case "active":
			templates, err = c.Templates.ListActive(ctx, args[0])
		case "daily":
			templates, err = c.Templates.ListDaily(ctx, args[0])
		case "all":
			templates, err = c.Templates.ListAll(ctx, args[0])
		default:
			return fmt.Errorf("--scope must be active, daily or all")
		}
		if err != nil {
			return err
		}
		renderTemplates(cmd.OutOrStdout(), templates)
		return nil
	},
}

var seedTemplatesCmd = &cobra.Command{
	Use:   "seed [familyID]",
	Short: "Create the default templates the family does not have yet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := components()
		if err != nil {
			return err
		}
		defer c.Close()

		n, err := c.TemplateService.SeedDefaults(cmd.Context(), args[0], templateCreatedBy)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ %d default templates created for %s\n", n, args[0])
		return nil
	},
}

var inspectTemplatesCmd = &cobra.Command{
	Use:   "inspect [familyID]",
	Short: "Show whether the daily engine has work for a family",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := components()
		if err != nil {
			return err
		}
		defer c.Close()

		in, err := c.Materializer.Inspect(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		renderInspection(cmd.OutOrStdout(), in)
		return nil
	},
}

func init() {
	listTemplatesCmd.Flags().StringVar(&templateScope, "scope", "active", "active, daily or all")
	seedTemplatesCmd.Flags().StringVar(&templateCreatedBy, "created-by", "system", "created_by for new templates")

	templatesCmd.AddCommand(listTemplatesCmd)
	templatesCmd.AddCommand(seedTemplatesCmd)
	templatesCmd.AddCommand(inspectTemplatesCmd)
}
