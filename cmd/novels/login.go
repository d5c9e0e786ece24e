package cmd

import (
	"fmt"
	"strconv"

	"github.com/kerbaras/novels/pkg/data"
	"github.com/kerbaras/novels/pkg/services"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store session cookies",
	Long:  "Log in through the browser flow. --user all renews every account whose stored credential is no longer valid",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")

		ctrl, err := services.NewController(cfg)
		if err != nil {
			return err
		}
		defer ctrl.Close()
		session := ctrl.Session()

		var id int
		switch user {
		case "all":
		case "":
			if id, err = newApp(cmd, ctrl).SelectAccount("All accounts"); err != nil {
				return err
			}
		default:
			if id, err = strconv.Atoi(user); err != nil || id < 1 {
				return data.NewError(data.KindConfig, "--user must be an account number or all", nil)
			}
		}

		if id == 0 {
			return loginAll(cmd, session)
		}

		fmt.Printf("🔐 Logging in account #%d...\n", id)
		cred, err := session.Login(cmd.Context(), id, true)
		if err != nil {
			return err
		}
		fmt.Printf("✅ Logged in as %s\n", cred.UserEmail)
		return nil
	},
}

func loginAll(cmd *cobra.Command, session *services.Session) error {
	results, err := session.LoginAll(cmd.Context(), func(r services.LoginResult) {
		switch r.Outcome {
		case services.LoginSkipped:
			fmt.Printf("⏭️  #%d %s still valid\n", r.Account.ID, r.Account.Email)
		case services.LoginSucceeded:
			fmt.Printf("✅ #%d %s logged in\n", r.Account.ID, r.Account.Email)
		case services.LoginFailed:
			fmt.Printf("❌ #%d %s: %v\n", r.Account.ID, r.Account.Email, r.Err)
		}
	})

	counts := map[services.LoginOutcome]int{}
	for _, r := range results {
		counts[r.Outcome]++
	}
	fmt.Printf("\n📊 %d logged in, %d skipped, %d failed\n",
		counts[services.LoginSucceeded], counts[services.LoginSkipped], counts[services.LoginFailed])
	return err
}

func init() {
	loginCmd.Flags().StringP("user", "u", "", "Account number from users.txt, or all")
	rootCmd.AddCommand(loginCmd)
}
