package cmd

import (
	"fmt"

	"github.com/kerbaras/novels/pkg/app"
	"github.com/kerbaras/novels/pkg/app/components"
	"github.com/kerbaras/novels/pkg/data"
	"github.com/kerbaras/novels/pkg/services"
	"github.com/spf13/cobra"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "View, resume or clear saved download progress",
	Long:  "Manage the saved cursor of every work. Without flags an interactive menu is shown",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		view, _ := cmd.Flags().GetBool("view")
		resume, _ := cmd.Flags().GetBool("resume")
		clear, _ := cmd.Flags().GetBool("clear")
		workID, _ := cmd.Flags().GetString("novel-id")
		user, _ := cmd.Flags().GetInt("user")

		if resume && workID == "" {
			return data.NewError(data.KindConfig, "--resume needs --novel-id", nil)
		}

		ctrl, err := services.NewController(cfg)
		if err != nil {
			return err
		}
		defer ctrl.Close()

		out := cmd.OutOrStdout()
		store := ctrl.Progress()

		switch {
		case view:
			records, err := store.List()
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(out, "📭 No saved progress")
				return nil
			}
			fmt.Fprintln(out, components.ProgressTable(records))

		case resume:
			tracker := watchProgress(out, ctrl)
			res, err := newApp(cmd, ctrl).Resume(cmd.Context(), workID, user)
			if err != nil {
				return err
			}
			app.PrintResult(out, res)
			reportFailed(out, tracker)

		case clear && workID != "":
			deleted, err := store.Delete(workID)
			if err != nil {
				return err
			}
			if !deleted {
				fmt.Fprintf(out, "📭 No saved progress for %s\n", workID)
				return nil
			}
			fmt.Fprintf(out, "🗑️  Cleared progress of %s\n", workID)

		case clear:
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(out, "🗑️  Cleared all progress")

		default:
			watchProgress(out, ctrl)
			return newApp(cmd, ctrl).ManageProgress(cmd.Context(), user)
		}
		return nil
	},
}

func init() {
	progressCmd.Flags().Bool("view", false, "Show the saved progress")
	progressCmd.Flags().Bool("resume", false, "Resume the work given by --novel-id")
	progressCmd.Flags().Bool("clear", false, "Clear the progress of --novel-id, or of every work")
	progressCmd.Flags().String("novel-id", "", "Work id")
	progressCmd.Flags().IntP("user", "u", 0, "Account number to resume with")
	progressCmd.MarkFlagsMutuallyExclusive("view", "resume", "clear")
	rootCmd.AddCommand(progressCmd)
}
