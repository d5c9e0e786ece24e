package cmd

import (
	"fmt"

	"github.com/kerbaras/novels/pkg/app"
	"github.com/kerbaras/novels/pkg/services"
	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download [work_id]",
	Short: "Download a work into a text file",
	Long:  "Download a range of chapters of a work. Without a work id the command asks for one interactively",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, _ := cmd.Flags().GetInt("start")
		end, _ := cmd.Flags().GetInt("end")
		count, _ := cmd.Flags().GetInt("count")
		user, _ := cmd.Flags().GetInt("user")

		// Flags are checked before anything touches the network or disk
		r, err := services.NewRange(start, end, count)
		if err != nil {
			return err
		}

		ctrl, err := services.NewController(cfg)
		if err != nil {
			return err
		}
		defer ctrl.Close()

		out := cmd.OutOrStdout()
		tracker := watchProgress(out, ctrl)

		if len(args) == 0 {
			return newApp(cmd, ctrl).Download(cmd.Context(), user)
		}

		workID := args[0]
		if r.End > 0 {
			fmt.Fprintf(out, "📥 Downloading %s, chapters %d-%d\n", workID, r.Start, r.End)
		} else {
			fmt.Fprintf(out, "📥 Downloading %s from chapter %d\n", workID, r.Start)
		}

		res, err := ctrl.Download(cmd.Context(), services.DownloadRequest{WorkID: workID, Range: r, AccountID: user})
		if err != nil {
			return fmt.Errorf("download failed: %w", err)
		}
		app.PrintResult(out, res)
		reportFailed(out, tracker)
		return nil
	},
}

func init() {
	downloadCmd.Flags().IntP("start", "s", 1, "First chapter to download")
	downloadCmd.Flags().IntP("end", "e", 0, "Last chapter to download (default: last chapter of the work)")
	downloadCmd.Flags().IntP("count", "c", 0, "Number of chapters to download from --start")
	downloadCmd.Flags().IntP("user", "u", 0, "Account number to download with")
	rootCmd.AddCommand(downloadCmd)
}
