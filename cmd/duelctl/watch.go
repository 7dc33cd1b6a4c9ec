package main

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/programme-lv/duel/domain"
	"github.com/programme-lv/duel/scoreboard"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live scoreboard and queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")
		_, err := tea.NewProgram(newWatchModel(newClient(), interval)).Run()
		return err
	},
}

func init() {
	watchCmd.Flags().Duration("interval", 2*time.Second, "refresh interval")
}

var dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

type snapshotMsg struct {
	board scoreboard.Scoreboard
	queue []domain.QueueEntry
	at    time.Time
	err   error
}

type tickMsg time.Time

type watchModel struct {
	client   *client
	interval time.Duration
	last     snapshotMsg
	loaded   bool
}

func newWatchModel(c *client, interval time.Duration) watchModel {
	return watchModel{client: c, interval: interval}
}

func (m watchModel) fetch() tea.Cmd {
	return func() tea.Msg {
		msg := snapshotMsg{at: time.Now()}
		if err := m.client.get("/scoreboard", &msg.board); err != nil {
			msg.err = err
			return msg
		}
		msg.err = m.client.get("/queue", &msg.queue)
		return msg
	}
}

func (m watchModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m watchModel) Init() tea.Cmd {
	return m.fetch()
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			return m, m.fetch()
		}
	case snapshotMsg:
		m.last = msg
		m.loaded = true
		return m, m.tick()
	case tickMsg:
		return m, m.fetch()
	}
	return m, nil
}

func (m watchModel) View() string {
	if !m.loaded {
		return "loading...\n"
	}
	s := renderScoreboard(m.last.board) + "\n\n"
	if len(m.last.queue) == 0 {
		s += "queue: empty\n"
	} else {
		s += fmt.Sprintf("queue: %d waiting, judging %s\n", len(m.last.queue), m.last.queue[0].SubmissionID)
	}
	if m.last.err != nil {
		s += fmt.Sprintf("error: %v\n", m.last.err)
	}
	s += dimStyle.Render(fmt.Sprintf("updated %s, r refresh, q quit", m.last.at.Format("15:04:05"))) + "\n"
	return s
}
