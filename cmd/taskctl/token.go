package main

import (
	"errors"
	"fmt"
	"time"

	"familytasks/pkg/rbac"
	"familytasks/pkg/util"

	"github.com/spf13/cobra"
)

var (
	tokenFamily string
	tokenUser   string
	tokenRole   string
	tokenTTL    time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an API token for a family member",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.JWT.Secret == "" {
			return errors.New("jwt.secret is empty")
		}
		if tokenFamily == "" || tokenUser == "" {
			return errors.New("--family and --user are required")
		}
		token, err := util.GenerateJWT(tokenFamily, tokenUser, rbac.NormalizeRole(tokenRole), cfg.JWT.Secret, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVarP(&tokenFamily, "family", "f", "", "family id")
	tokenCmd.Flags().StringVarP(&tokenUser, "user", "u", "", "user id")
	tokenCmd.Flags().StringVar(&tokenRole, "role", rbac.RoleParent, "parent, child or admin")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
}
