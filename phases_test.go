package main

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- theme selection ----

func TestThemesDeliveredToHostNotGuessers(t *testing.T) {
	tr := setupRoom(t, 3, nil)
	tr.start()

	hc := tr.hostClient()
	drain(hc)
	drain(tr.clients[1])

	tr.pumpThemes()

	msg, ok := findMessage[ThemesGeneratedMessage](drain(hc))
	require.True(t, ok)
	assert.Equal(t, tr.g.state.ThemeChoices, msg.Themes)

	_, ok = findMessage[ThemesGeneratedMessage](drain(tr.clients[1]))
	assert.False(t, ok, "guessers must not see the theme choices")
}

func TestThemeProviderFailureUsesFallback(t *testing.T) {
	tr := setupRoom(t, 3, nil)
	tr.g.themes = &stubThemes{err: errors.New("upstream unavailable")}
	tr.start()
	tr.pumpThemes()

	assert.Equal(t, tr.g.themes.FallbackThemes(), tr.g.state.ThemeChoices)
}

func TestStaleThemeResultDiscarded(t *testing.T) {
	tr := setupRoom(t, 3, nil)
	tr.start()
	tr.pumpThemes()

	want := tr.g.state.ThemeChoices
	tr.g.handleThemeResult(themeResult{gen: tr.g.state.themeGen - 1, themes: []string{"stale"}})

	assert.Equal(t, want, tr.g.state.ThemeChoices)
}

func TestSelectThemeHostOnly(t *testing.T) {
	tr := setupRoom(t, 3, nil)
	tr.start()
	tr.pumpThemes()

	tr.g.handleCommand(tr.clients[1], ClientMessage{Type: "host_select_theme", Theme: tr.g.state.ThemeChoices[0]})

	assert.Equal(t, PhaseThemeSelect, tr.g.state.Phase)
	msg, ok := findMessage[ErrorMessage](drain(tr.clients[1]))
	require.True(t, ok)
	assert.Equal(t, ErrNotTheHost.Error(), msg.Message)
}

func TestSelectThemeRejectsUnknownTheme(t *testing.T) {
	tr := setupRoom(t, 3, nil)
	tr.start()
	tr.pumpThemes()

	hc := tr.hostClient()
	tr.g.handleCommand(hc, ClientMessage{Type: "host_select_theme", Theme: "not one of the choices"})

	assert.Equal(t, PhaseThemeSelect, tr.g.state.Phase)
	msg, ok := findMessage[ErrorMessage](drain(hc))
	require.True(t, ok)
	assert.Equal(t, ErrUnknownTheme.Error(), msg.Message)
}

func TestSelectThemeStartsAnswering(t *testing.T) {
	tr := setupRoom(t, 3, nil)
	tr.start()
	tr.pumpThemes()

	theme := tr.g.state.ThemeChoices[1]
	tr.g.handleCommand(tr.hostClient(), ClientMessage{Type: "host_select_theme", Theme: theme})

	assert.Equal(t, PhaseAnswering, tr.g.state.Phase)
	assert.Equal(t, theme, tr.g.state.Theme)

	msg, ok := findMessage[ThemeSelectedMessage](drain(tr.clients[1]))
	require.True(t, ok)
	assert.Equal(t, theme, msg.Theme)
	assert.Equal(t, tr.players[0].Name, msg.HostName)
}

func TestThemeSelectTimeoutAutoSelectsFirst(t *testing.T) {
	tr := setupRoom(t, 3, nil)
	tr.start()

	// The provider result never gets pumped, simulating a slow upstream.
	tr.g.themeSelectExpired()

	assert.Equal(t, PhaseAnswering, tr.g.state.Phase)
	assert.Equal(t, tr.g.themes.FallbackThemes()[0], tr.g.state.Theme)
}

// ---- answering ----

func answerOf(g *Game, playerID string) *Answer {
	for i := range g.state.Answers {
		if g.state.Answers[i].PlayerID == playerID {
			return &g.state.Answers[i]
		}
	}
	return nil
}

func startAnswering(t *testing.T, tr *testRoom) {
	t.Helper()
	tr.start()
	tr.pumpThemes()
	tr.g.handleCommand(tr.hostClient(), ClientMessage{Type: "host_select_theme", Theme: tr.g.state.ThemeChoices[0]})
	require.Equal(t, PhaseAnswering, tr.g.state.Phase)
}

func TestSubmitAnswerValidation(t *testing.T) {
	tr := setupRoom(t, 4, nil)
	startAnswering(t, tr)
	g := tr.g

	tests := []struct {
		name   string
		client *Client
		answer string
		want   error
	}{
		{"host cannot answer", tr.hostClient(), "sneaky", ErrHostCannotAnswer},
		{"empty answer", tr.clients[1], "   ", ErrEmptyAnswer},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			drain(tc.client)
			g.handleCommand(tc.client, ClientMessage{Type: "submit_answer", Answer: tc.answer})

			msg, ok := findMessage[ErrorMessage](drain(tc.client))
			require.True(t, ok)
			assert.Equal(t, tc.want.Error(), msg.Message)
		})
	}

	g.handleCommand(tr.clients[1], ClientMessage{Type: "submit_answer", Answer: "first"})
	drain(tr.clients[1])
	g.handleCommand(tr.clients[1], ClientMessage{Type: "submit_answer", Answer: "second"})

	msg, ok := findMessage[ErrorMessage](drain(tr.clients[1]))
	require.True(t, ok)
	assert.Equal(t, ErrAlreadyAnswered.Error(), msg.Message)
	require.NotNil(t, answerOf(g, tr.players[1].ID))
	assert.Equal(t, "first", answerOf(g, tr.players[1].ID).Text)
}

func TestSubmitAnswerTruncates(t *testing.T) {
	tr := setupRoom(t, 3, nil)
	startAnswering(t, tr)

	long := strings.Repeat("x", maxAnswerLength+40)
	tr.g.handleCommand(tr.clients[1], ClientMessage{Type: "submit_answer", Answer: long})

	a := answerOf(tr.g, tr.players[1].ID)
	require.NotNil(t, a)
	assert.Len(t, a.Text, maxAnswerLength)
}

func TestSubmitAnswerTruncatesMultibyteOnRuneBoundary(t *testing.T) {
	tr := setupRoom(t, 3, nil)
	startAnswering(t, tr)

	long := strings.Repeat("é", maxAnswerLength+40)
	tr.g.handleCommand(tr.clients[1], ClientMessage{Type: "submit_answer", Answer: long})

	a := answerOf(tr.g, tr.players[1].ID)
	require.NotNil(t, a)
	assert.Equal(t, strings.Repeat("é", maxAnswerLength), a.Text)
	assert.True(t, utf8.ValidString(a.Text))
}

func TestSubmitAnswerBroadcastsProgressWithoutContent(t *testing.T) {
	tr := setupRoom(t, 4, nil)
	startAnswering(t, tr)

	drain(tr.clients[2])
	tr.g.handleCommand(tr.clients[1], ClientMessage{Type: "submit_answer", Answer: "secret text"})

	msgs := drain(tr.clients[2])
	progress, ok := findMessage[SubmissionProgressMessage](msgs)
	require.True(t, ok)
	assert.Equal(t, 1, progress.Submitted)
	assert.Equal(t, 3, progress.Total)

	for _, m := range msgs {
		assert.NotContains(t, fmt.Sprintf("%+v", m), "secret text", "answer content leaked before matching")
	}
}

func TestAnsweringEndsEarlyWhenAllSubmitted(t *testing.T) {
	tr := setupRoom(t, 4, nil)
	startAnswering(t, tr)

	tr.answerAll()

	assert.Equal(t, PhaseMatching, tr.g.state.Phase)
	assert.Len(t, tr.g.state.Shuffled, 3)
}

func TestAnsweringTimeoutPenalizesSilentPlayers(t *testing.T) {
	tr := setupRoom(t, 4, nil)
	startAnswering(t, tr)
	g := tr.g

	g.handleCommand(tr.clients[1], ClientMessage{Type: "submit_answer", Answer: "on time"})
	drain(tr.clients[1])
	drain(tr.clients[2])
	drain(tr.clients[3])

	g.answeringExpired()

	assert.Equal(t, PhaseMatching, g.state.Phase)
	assert.Equal(t, g.cfg.noAnswerPenalty, tr.players[2].Score)
	assert.Equal(t, g.cfg.noAnswerPenalty, tr.players[3].Score)
	assert.Zero(t, tr.players[1].Score)

	for _, p := range []*Player{tr.players[2], tr.players[3]} {
		a := answerOf(g, p.ID)
		require.NotNil(t, a)
		assert.Equal(t, noAnswerText, a.Text)
		assert.True(t, a.Penalty)
	}

	msg, ok := findMessage[PenaltyAppliedMessage](drain(tr.clients[2]))
	require.True(t, ok)
	assert.Equal(t, g.cfg.noAnswerPenalty, msg.Penalty)

	_, ok = findMessage[PenaltyAppliedMessage](drain(tr.clients[1]))
	assert.False(t, ok, "players who answered must not be penalized")
}

// ---- matching ----

func startMatching(t *testing.T, tr *testRoom) {
	t.Helper()
	startAnswering(t, tr)
	tr.answerAll()
	require.Equal(t, PhaseMatching, tr.g.state.Phase)
}

func TestMatchingPayloadHidesAuthors(t *testing.T) {
	tr := setupRoom(t, 4, nil)
	startMatching(t, tr)

	payload := tr.g.matchingPayload()
	require.Len(t, payload.Answers, 3)

	for i, a := range payload.Answers {
		assert.Equal(t, i, a.Index)
		assert.Equal(t, tr.g.state.Shuffled[i].Text, a.Text)
	}
}

func TestShuffleIsFixedForTheRound(t *testing.T) {
	tr := setupRoom(t, 4, nil)
	startMatching(t, tr)

	first := tr.g.matchingPayload()
	second := tr.g.matchingPayload()

	assert.Equal(t, first, second, "the shuffle must not be redrawn per request")
}

func TestSubmitMatchesScoresAgainstShuffle(t *testing.T) {
	tr := setupRoom(t, 4, nil)
	startMatching(t, tr)
	g := tr.g

	host := g.currentHost()
	g.handleCommand(tr.hostClient(), ClientMessage{Type: "host_submit_matches", Matches: tr.matchesWithCorrect(3)})

	require.Equal(t, PhaseReveal, g.state.Phase)
	assert.Equal(t, 3, g.state.RoundScore.CorrectMatches)
	assert.True(t, g.state.RoundScore.IsPerfect)
	assert.Equal(t, 3+g.cfg.perfectBonus, host.Score)
}

func TestSubmitMatchesAcceptsPartialSet(t *testing.T) {
	tr := setupRoom(t, 4, nil)
	startMatching(t, tr)
	g := tr.g

	partial := tr.matchesWithCorrect(1)[:2]
	g.handleCommand(tr.hostClient(), ClientMessage{Type: "host_submit_matches", Matches: partial})

	require.Equal(t, PhaseReveal, g.state.Phase)
	assert.Equal(t, 2, g.state.RoundScore.TotalMatches, "unmatched answers are simply left out")
	assert.Equal(t, 1, g.state.RoundScore.CorrectMatches)
	assert.Len(t, g.state.Results, 2)
}

func TestSubmitMatchesHostOnly(t *testing.T) {
	tr := setupRoom(t, 4, nil)
	startMatching(t, tr)

	tr.g.handleCommand(tr.clients[1], ClientMessage{Type: "host_submit_matches", Matches: tr.matchesWithCorrect(0)})

	assert.Equal(t, PhaseMatching, tr.g.state.Phase)
	msg, ok := findMessage[ErrorMessage](drain(tr.clients[1]))
	require.True(t, ok)
	assert.Equal(t, ErrNotTheHost.Error(), msg.Message)
}

func TestMatchingTimeoutSubmitsFallbackGuesses(t *testing.T) {
	tr := setupRoom(t, 5, nil)
	startMatching(t, tr)
	g := tr.g

	g.matchingExpired()

	require.Equal(t, PhaseReveal, g.state.Phase)
	assert.Len(t, g.state.Matches, len(g.state.Shuffled), "every answer needs a fallback guess")
	assert.Len(t, g.state.Results, len(g.state.Shuffled))

	host := g.state.Players[0]
	for _, m := range g.state.Matches {
		assert.NotEqual(t, host.ID, m.PlayerID, "the host is never a guessable author")
	}
}

// ---- reveal and round end ----

func TestRevealWalksEveryResultThenEndsRound(t *testing.T) {
	tr := setupRoom(t, 4, nil)
	startMatching(t, tr)
	g := tr.g

	g.handleCommand(tr.hostClient(), ClientMessage{Type: "host_submit_matches", Matches: tr.matchesWithCorrect(2)})
	require.Equal(t, PhaseReveal, g.state.Phase)

	drain(tr.clients[1])
	steps := 0
	for g.state.Phase == PhaseReveal {
		g.revealStep()
		steps++
		require.LessOrEqual(t, steps, 10, "reveal never terminated")
	}

	msgs := drain(tr.clients[1])
	var reveals []RevealResultMessage
	for _, m := range msgs {
		if r, ok := m.(RevealResultMessage); ok {
			reveals = append(reveals, r)
		}
	}

	require.Len(t, reveals, 3)
	for i, r := range reveals {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, 3, r.Total)
		assert.Equal(t, g.state.Results[i].IsCorrect, r.IsCorrect)
	}

	assert.Equal(t, PhaseRoundEnd, g.state.Phase)

	end, ok := findMessage[RoundEndMessage](msgs)
	require.True(t, ok)
	assert.Equal(t, g.state.Players[0].ID, end.CurrentHost.ID)
	require.NotNil(t, end.NextHost)
	assert.Equal(t, g.state.Players[1].ID, end.NextHost.ID)
	assert.Equal(t, 2, end.HostScore.Score)
}

func TestScoreboardSortedByScoreThenJoinOrder(t *testing.T) {
	tr := setupRoom(t, 3, nil)

	tr.players[0].Score = 4
	tr.players[1].Score = 7
	tr.players[2].Score = 4

	board := tr.g.scoreboard()

	require.Len(t, board, 3)
	assert.Equal(t, tr.players[1].ID, board[0].ID)
	assert.Equal(t, tr.players[0].ID, board[1].ID, "ties keep join order")
	assert.Equal(t, tr.players[2].ID, board[2].ID)
}

func TestHostRotatesInJoinOrder(t *testing.T) {
	cfg := testConfig()
	cfg.rotations = 2

	tr := setupRoom(t, 3, cfg)
	tr.start()

	var hosts []string
	for range 6 {
		hosts = append(hosts, tr.g.currentHost().ID)
		tr.playRound(0)
	}

	want := []string{
		tr.players[0].ID, tr.players[1].ID, tr.players[2].ID,
		tr.players[0].ID, tr.players[1].ID, tr.players[2].ID,
	}
	assert.Equal(t, want, hosts)
}
