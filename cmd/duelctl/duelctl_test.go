package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/programme-lv/duel/httpjson"
	"github.com/programme-lv/duel/scoreboard"
	"github.com/stretchr/testify/require"
)

var board = scoreboard.Scoreboard{
	Roles: []string{"client", "server"},
	Rows: []scoreboard.Row{
		{Rank: 1, User: "sam", Scores: map[string]float64{"server": 1}, Total: 1},
		{Rank: 2, User: "carol", Scores: map[string]float64{"client": -1}, Total: -1},
	},
}

func TestRenderScoreboard(t *testing.T) {
	out := renderScoreboard(board)
	require.Contains(t, out, "sam")
	require.Contains(t, out, "1.000")
	require.Contains(t, out, "-1.000")
	require.Less(t, strings.Index(out, "sam"), strings.Index(out, "carol"))

	require.Equal(t, "no submissions yet", renderScoreboard(scoreboard.Scoreboard{}))
}

func TestClientDecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/scoreboard":
			httpjson.WriteSuccessJson(w, board)
		default:
			httpjson.WriteErrorJson(w, "Submission not found", http.StatusNotFound, "submission_not_found")
		}
	}))
	defer srv.Close()

	c := &client{base: srv.URL + "/"}
	var got scoreboard.Scoreboard
	require.NoError(t, c.get("/scoreboard", &got))
	require.Equal(t, board, got)

	var raw json.RawMessage
	err := c.get("/submissions/alice/x", &raw)
	require.ErrorContains(t, err, "submission_not_found")
}

func TestWatchModel(t *testing.T) {
	m := newWatchModel(&client{}, 0)
	require.Equal(t, "loading...\n", m.View())

	next, cmd := m.Update(snapshotMsg{board: board})
	require.NotNil(t, cmd)
	view := next.View()
	require.Contains(t, view, "sam")
	require.Contains(t, view, "queue: empty")

	_, cmd = next.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	require.True(t, ok)
}
