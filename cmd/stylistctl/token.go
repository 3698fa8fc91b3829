package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"closetapi/config"
	"closetapi/controllers"
)

var (
	tokenUser uint
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign a bearer token for a user id using JWT_SECRET",
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenUser == 0 {
			return fmt.Errorf("--user is required")
		}
		secret, err := config.LoadJWTSecret()
		if err != nil {
			return err
		}
		token, err := controllers.GenerateUserToken(controllers.UIntToStr(tokenUser), secret, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().UintVar(&tokenUser, "user", 0, "user id placed in the sub claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 72*time.Hour, "token lifetime")
}
