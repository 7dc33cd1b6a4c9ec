package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/programme-lv/duel/domain"
	"github.com/programme-lv/duel/scoreboard"
	"github.com/spf13/cobra"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	leaderStyle = cellStyle.Foreground(lipgloss.Color("10"))
)

var scoreboardCmd = &cobra.Command{
	Use:   "scoreboard",
	Short: "Print the current scoreboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		var board scoreboard.Scoreboard
		if err := newClient().get("/scoreboard", &board); err != nil {
			return err
		}
		fmt.Println(renderScoreboard(board))
		return nil
	},
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "List submissions waiting to be judged",
	RunE: func(cmd *cobra.Command, args []string) error {
		var queue []domain.QueueEntry
		if err := newClient().get("/queue", &queue); err != nil {
			return err
		}
		if len(queue) == 0 {
			fmt.Println("queue is empty")
			return nil
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("#", "submission", "user", "role").
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cellStyle
			})
		for i, e := range queue {
			t.Row(strconv.Itoa(i+1), e.SubmissionID, e.User, e.Role)
		}
		fmt.Println(t.Render())
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <submission id>",
	Short: "Show the status of one of your submissions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var subm domain.Submission
		if err := newClient().get("/submissions/"+args[0], &subm); err != nil {
			return err
		}
		fmt.Printf("%s  %s  %s  %s\n", subm.ID, subm.Role, subm.Status, subm.UpdatedAt.Format("2006-01-02 15:04:05"))
		if subm.Message != "" {
			fmt.Println(subm.Message)
		}
		return nil
	},
}

func renderScoreboard(board scoreboard.Scoreboard) string {
	if len(board.Rows) == 0 {
		return "no submissions yet"
	}
	headers := append([]string{"rank", "user"}, board.Roles...)
	headers = append(headers, "total")

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			// data rows follow the header row
			i := row - table.HeaderRow - 1
			if i >= 0 && i < len(board.Rows) && board.Rows[i].Rank == 1 {
				return leaderStyle
			}
			return cellStyle
		})

	for _, r := range board.Rows {
		cells := []string{strconv.Itoa(r.Rank), r.User}
		for _, role := range board.Roles {
			if sc, ok := r.Scores[role]; ok {
				cells = append(cells, fmt.Sprintf("%.3f", sc))
			} else {
				cells = append(cells, "-")
			}
		}
		cells = append(cells, fmt.Sprintf("%.3f", r.Total))
		t.Row(cells...)
	}
	return t.Render()
}
