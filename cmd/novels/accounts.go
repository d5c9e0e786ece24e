package cmd

import (
	"fmt"
	"time"

	"github.com/kerbaras/novels/pkg/app/components"
	"github.com/kerbaras/novels/pkg/services"
	"github.com/spf13/cobra"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List accounts and the state of their credentials",
	Run: func(cmd *cobra.Command, args []string) {
		ctrl, err := services.NewController(cfg)
		cobra.CheckErr(err)
		defer ctrl.Close()

		accounts, err := ctrl.Accounts()
		cobra.CheckErr(err)

		rows := make([]components.AccountRow, len(accounts))
		for i, acc := range accounts {
			rows[i] = components.AccountRow{Account: acc, Credential: ctrl.Credentials().Lookup(acc.ID)}
		}

		fmt.Println(components.AccountsTable(rows, time.Now()))
	},
}

func init() {
	rootCmd.AddCommand(accountsCmd)
}
