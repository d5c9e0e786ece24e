package cmd

import (
	"fmt"

	"github.com/kerbaras/novels/pkg/services"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the working directories and an accounts template",
	Run: func(cmd *cobra.Command, args []string) {
		ctrl, err := services.NewController(cfg)
		cobra.CheckErr(err)
		defer ctrl.Close()

		created, err := ctrl.Setup()
		cobra.CheckErr(err)

		if len(created) == 0 {
			fmt.Println("✅ Everything is already in place")
			return
		}
		for _, path := range created {
			fmt.Printf("📁 Created %s\n", path)
		}
		fmt.Printf("\n✏️  Add your accounts to %s, then run `novels login`\n", cfg.AccountsPath())
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
