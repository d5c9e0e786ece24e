package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/kerbaras/novels/pkg/app/styles"
	"github.com/kerbaras/novels/pkg/data"
)

// ProgressTable renders the saved download progress of every work.
func ProgressTable(records []*data.Progress) string {
	columns := []table.Column{
		{Title: "ID", Width: 10},
		{Title: "Title", Width: 36},
		{Title: "Progress", Width: 12},
		{Title: "Done", Width: 8},
		{Title: "Next", Width: 6},
	}

	rows := []table.Row{}
	for _, p := range records {
		rows = append(rows, table.Row{
			p.WorkID,
			Truncate(p.Title, 34),
			p.Progress,
			fmt.Sprintf("%.1f%%", p.Percentage),
			fmt.Sprintf("%d", p.NextChapter),
		})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)+2),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Cell
	t.SetStyles(s)
	return t.View()
}

// AccountRow is one line of the accounts listing.
type AccountRow struct {
	Account    data.Account
	Credential *data.Credential
}

// CredentialStatus classifies an account's stored credential at now.
func CredentialStatus(cred *data.Credential, now time.Time) string {
	switch {
	case cred == nil:
		return "missing"
	case cred.ValidAt(now):
		return "valid"
	default:
		return "expired"
	}
}

// AccountsTable renders the configured accounts with their credential state.
func AccountsTable(rows []AccountRow, now time.Time) string {
	var (
		purple = lipgloss.Color("99")

		headerStyle = lipgloss.NewStyle().Foreground(purple).Bold(true).Align(lipgloss.Center)
		cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	)

	statuses := make([]string, len(rows))
	t := ltable.New().
		Border(lipgloss.HiddenBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(purple)).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == ltable.HeaderRow:
				return headerStyle
			case col == 2 && row >= 0 && row < len(statuses):
				return styles.StatusStyle(statuses[row]).Padding(0, 1)
			default:
				return cellStyle
			}
		}).
		Headers("#", "Email", "Status", "Expires")

	for i, r := range rows {
		statuses[i] = CredentialStatus(r.Credential, now)
		expires := "-"
		if r.Credential != nil && r.Credential.ExpiresDate != nil {
			expires = *r.Credential.ExpiresDate
		}
		t.Row(fmt.Sprintf("%d", r.Account.ID), r.Account.Email, statuses[i], expires)
	}
	return t.String()
}

// Truncate shortens s to max runes, ending with an ellipsis.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
