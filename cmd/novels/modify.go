package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kerbaras/novels/pkg/app"
	"github.com/kerbaras/novels/pkg/data"
	"github.com/kerbaras/novels/pkg/integrations"
	"github.com/kerbaras/novels/pkg/services"
	"github.com/spf13/cobra"
)

var modifyCmd = &cobra.Command{
	Use:   "modify",
	Short: "Renumber chapter headings in a downloaded file",
	Long: "Shift the 第N章 numbers of a downloaded file, either for a number range (--start/--end) " +
		"or for the span between two chapter names (--start-name/--end-name)",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		if file == "" {
			ctrl, err := services.NewController(cfg)
			if err != nil {
				return err
			}
			defer ctrl.Close()
			return newApp(cmd, ctrl).Modify()
		}

		start, _ := cmd.Flags().GetInt("start")
		end, _ := cmd.Flags().GetInt("end")
		startName, _ := cmd.Flags().GetString("start-name")
		endName, _ := cmd.Flags().GetString("end-name")
		increment, _ := cmd.Flags().GetInt("increment")
		yes, _ := cmd.Flags().GetBool("yes")

		path := file
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = filepath.Join(cfg.OutputDir, file)
		}

		var processor integrations.Processor
		switch {
		case startName != "" || endName != "":
			if startName == "" || endName == "" {
				return data.NewError(data.KindConfig, "--start-name and --end-name go together", nil)
			}
			r := integrations.NameRenumber{StartName: startName, EndName: endName, Increment: increment}
			if !yes {
				raw, err := os.ReadFile(path)
				if err != nil {
					return data.NewError(data.KindStorage, "read "+path, err)
				}
				plan, err := r.Plan(string(raw))
				if err != nil {
					return err
				}
				for _, h := range plan {
					fmt.Printf("  第%d章 %s → 第%d章\n", h.Number, h.Name, h.Number+increment)
				}
				if !confirm(cmd, fmt.Sprintf("Renumber these %d headings?", len(plan))) {
					return nil
				}
			}
			processor = r

		case cmd.Flags().Changed("start") && cmd.Flags().Changed("end"):
			if !yes && !confirm(cmd, fmt.Sprintf("Renumber chapters %d-%d by %+d in %s?", start, end, increment, path)) {
				return nil
			}
			processor = integrations.RangeRenumber{Start: start, End: end, Increment: increment}

		default:
			return data.NewError(data.KindConfig, "give --start and --end, or --start-name and --end-name", nil)
		}

		changed, err := integrations.ProcessFile(path, processor)
		if err != nil {
			return err
		}
		if changed == 0 {
			fmt.Println("📭 No headings matched")
			return nil
		}
		fmt.Printf("✅ Renumbered %d headings in %s\n", changed, path)
		return nil
	},
}

func confirm(cmd *cobra.Command, question string) bool {
	ok, err := app.NewTeaPrompter(cmd.Context()).Confirm(question)
	if err != nil || !ok {
		fmt.Println("⏭️  Nothing changed")
		return false
	}
	return true
}

func init() {
	modifyCmd.Flags().StringP("file", "f", "", "Text file to modify, absolute or relative to the output directory")
	modifyCmd.Flags().Int("start", 0, "First chapter number to shift")
	modifyCmd.Flags().Int("end", 0, "Last chapter number to shift")
	modifyCmd.Flags().String("start-name", "", "Name of the first chapter to shift")
	modifyCmd.Flags().String("end-name", "", "Name of the last chapter to shift")
	modifyCmd.Flags().IntP("increment", "i", 1, "Amount added to each chapter number")
	modifyCmd.Flags().BoolP("yes", "y", false, "Apply without asking")
	modifyCmd.MarkFlagsMutuallyExclusive("start", "start-name")
	modifyCmd.MarkFlagsMutuallyExclusive("end", "end-name")
	rootCmd.AddCommand(modifyCmd)
}
