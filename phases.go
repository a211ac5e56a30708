/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"strings"
	"time"
)

// resetRoundData clears everything scoped to a single round.
func (g *Game) resetRoundData() {
	st := g.state
	st.Theme = ""
	st.ThemeChoices = nil
	st.Answers = nil
	st.Shuffled = nil
	st.Matches = nil
	st.Results = nil
	st.RoundScore = HostScore{}
	st.RevealIndex = 0
}

// transitionTo moves to the next phase, cancelling every timer first so
// nothing stale can fire into it.
func (g *Game) transitionTo(phase Phase) {
	g.timers.clearAll()
	g.gracePlayerID = ""
	g.state.Phase = phase
}

// ---- theme selection ----

func (g *Game) enterThemeSelect() {
	g.transitionTo(PhaseThemeSelect)
	g.resetRoundData()
	g.state.CurrentRound++

	host := g.currentHost()
	for _, p := range g.state.Players {
		p.IsHost = host != nil && p.ID == host.ID
	}

	g.broadcast(PhaseChangedMessage{
		Type:         "phase_changed",
		Phase:        PhaseThemeSelect,
		CurrentRound: g.state.CurrentRound,
		TotalRounds:  g.state.TotalRounds,
		Host:         host,
		SuddenDeath:  g.state.SuddenDeath,
		Seconds:      durationSeconds(g.cfg.themeTimer),
	})

	g.timers.start(timerThemeSelect, g.cfg.themeTimer)

	g.requestThemes()

	// Host already gone: start the reconnection clock immediately.
	if host != nil && !host.IsConnected {
		g.gracePlayerID = host.ID
		g.timers.start(timerGrace, g.cfg.gracePeriod)
	}
}

// requestThemes kicks off the provider call without blocking the loop. The
// result is tagged with a generation counter so an answer that arrives after
// the phase already moved on (or after the fallback was substituted) is
// discarded instead of reapplied.
func (g *Game) requestThemes() {
	g.state.themeGen++
	gen := g.state.themeGen

	ctx, cancel := context.WithTimeout(context.Background(), g.cfg.themeTimer)

	go func() {
		defer cancel()

		themes, err := g.themes.GenerateThemes(ctx)
		g.themeResults <- themeResult{
			gen:    gen,
			themes: themes,
			err:    err,
		}
	}()
}

func (g *Game) handleThemeResult(tr themeResult) {
	if g.state.Phase != PhaseThemeSelect || tr.gen != g.state.themeGen || g.state.ThemeChoices != nil {
		return
	}

	if tr.err != nil {
		g.log.Debug().Err(tr.err).Msg("theme provider failed, using fallback")
		g.state.ThemeChoices = g.themes.FallbackThemes()
	} else {
		g.state.ThemeChoices = tr.themes
	}

	msg := ThemesGeneratedMessage{
		Type:   "themes_generated",
		Themes: g.state.ThemeChoices,
	}
	g.sendToHost(msg)
	g.sendToDisplay(msg)
}

func (g *Game) handleRequestThemes(c *Client) error {
	if g.state.Phase != PhaseThemeSelect {
		return ErrWrongPhase
	}

	host := g.currentHost()
	if host == nil || c.playerID != host.ID {
		return ErrNotTheHost
	}

	if g.state.ThemeChoices != nil {
		g.sendTo(c, ThemesGeneratedMessage{
			Type:   "themes_generated",
			Themes: g.state.ThemeChoices,
		})
		return nil
	}

	g.requestThemes()

	return nil
}

func (g *Game) handleSelectTheme(c *Client, theme string) error {
	if g.state.Phase != PhaseThemeSelect {
		return ErrWrongPhase
	}

	host := g.currentHost()
	if host == nil || c.playerID != host.ID {
		return ErrNotTheHost
	}

	theme = strings.TrimSpace(theme)

	known := false
	for _, t := range g.state.ThemeChoices {
		if t == theme {
			known = true
			break
		}
	}
	if !known {
		return ErrUnknownTheme
	}

	g.selectTheme(theme)

	return nil
}

// themeSelectExpired auto-picks the first candidate, substituting the local
// fallback list if the provider never answered.
func (g *Game) themeSelectExpired() {
	if g.state.ThemeChoices == nil {
		g.state.ThemeChoices = g.themes.FallbackThemes()
	}

	g.selectTheme(g.state.ThemeChoices[0])
}

func (g *Game) selectTheme(theme string) {
	g.state.Theme = theme

	host := g.currentHost()
	hostName := ""
	if host != nil {
		hostName = host.Name
	}

	g.broadcast(ThemeSelectedMessage{
		Type:     "theme_selected",
		Theme:    theme,
		HostName: hostName,
	})

	g.store.CreateRound(g.registry.CurrentRoomCode(), g.state.CurrentRound, theme, hostName)

	g.enterAnswering()
}

// ---- answering ----

func (g *Game) enterAnswering() {
	g.transitionTo(PhaseAnswering)

	g.broadcast(PhaseChangedMessage{
		Type:         "phase_changed",
		Phase:        PhaseAnswering,
		CurrentRound: g.state.CurrentRound,
		TotalRounds:  g.state.TotalRounds,
		Host:         g.currentHost(),
		Theme:        g.state.Theme,
		SuddenDeath:  g.state.SuddenDeath,
		Seconds:      durationSeconds(g.cfg.answerTimer),
	})

	g.timers.start(timerAnswering, g.cfg.answerTimer)
}

func (g *Game) handleSubmitAnswer(c *Client, answer string) error {
	if g.state.Phase != PhaseAnswering {
		return ErrWrongPhase
	}

	if c.playerID == "" {
		return ErrNotJoined
	}

	player := g.playerByID(c.playerID)
	if player == nil {
		return ErrUnknownPlayer
	}

	host := g.currentHost()
	if host != nil && player.ID == host.ID {
		return ErrHostCannotAnswer
	}

	for _, a := range g.state.Answers {
		if a.PlayerID == player.ID {
			return ErrAlreadyAnswered
		}
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return ErrEmptyAnswer
	}
	answer = truncateRunes(answer, maxAnswerLength)

	g.state.Answers = append(g.state.Answers, Answer{
		PlayerID:    player.ID,
		Text:        answer,
		SubmittedAt: time.Now(),
	})

	required := len(g.guessablePlayers())

	g.broadcast(SubmissionProgressMessage{
		Type:      "submission_progress",
		Submitted: len(g.state.Answers),
		Total:     required,
	})

	// Everyone answered: no point waiting out the clock.
	if len(g.state.Answers) >= required {
		g.enterMatching()
	}

	return nil
}

// answeringExpired penalizes every silent player and synthesizes a
// placeholder answer for them so matching always has one answer per
// non-host player.
func (g *Game) answeringExpired() {
	answered := make(map[string]bool, len(g.state.Answers))
	for _, a := range g.state.Answers {
		answered[a.PlayerID] = true
	}

	for _, p := range g.guessablePlayers() {
		if answered[p.ID] {
			continue
		}

		p.Score += g.cfg.noAnswerPenalty

		g.sendToPlayer(p.ID, PenaltyAppliedMessage{
			Type:    "penalty_applied",
			Penalty: g.cfg.noAnswerPenalty,
			Reason:  "no answer submitted in time",
		})

		g.state.Answers = append(g.state.Answers, Answer{
			PlayerID:    p.ID,
			Text:        noAnswerText,
			SubmittedAt: time.Now(),
			Penalty:     true,
		})
	}

	g.enterMatching()
}

// ---- matching ----

func (g *Game) enterMatching() {
	g.transitionTo(PhaseMatching)

	// The shuffle is fixed here, once per round. The host's matching UI and
	// the score engine both index into this exact ordering.
	shuffled := make([]Answer, len(g.state.Answers))
	copy(shuffled, g.state.Answers)
	g.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	g.state.Shuffled = shuffled

	g.store.SaveAnswers(g.registry.CurrentRoomCode(), g.state.CurrentRound, g.state.Answers)

	host := g.currentHost()

	g.broadcast(PhaseChangedMessage{
		Type:         "phase_changed",
		Phase:        PhaseMatching,
		CurrentRound: g.state.CurrentRound,
		TotalRounds:  g.state.TotalRounds,
		Host:         host,
		Theme:        g.state.Theme,
		SuddenDeath:  g.state.SuddenDeath,
		Seconds:      durationSeconds(g.cfg.matchTimer),
	})

	payload := g.matchingPayload()
	g.sendToHost(payload)
	g.sendToDisplay(payload)

	g.timers.start(timerMatching, g.cfg.matchTimer)

	if host != nil && !host.IsConnected {
		g.gracePlayerID = host.ID
		g.timers.start(timerGrace, g.cfg.gracePeriod)
	}
}

func (g *Game) matchingPayload() *MatchingPhaseStartMessage {
	answers := make([]ShuffledAnswer, len(g.state.Shuffled))
	for i, a := range g.state.Shuffled {
		answers[i] = ShuffledAnswer{
			Index: i,
			Text:  a.Text,
		}
	}

	return &MatchingPhaseStartMessage{
		Type:    "matching_phase_start",
		Answers: answers,
		Players: g.guessablePlayers(),
	}
}

func (g *Game) handleRequestMatchingData(c *Client) error {
	if g.state.Phase != PhaseMatching {
		return ErrWrongPhase
	}

	host := g.currentHost()
	if host == nil || c.playerID != host.ID {
		return ErrNotTheHost
	}

	g.sendTo(c, g.matchingPayload())

	return nil
}

// handleSubmitMatches accepts the host's guess set. Partial sets are taken
// as-is; unmatched answers simply score nothing.
func (g *Game) handleSubmitMatches(c *Client, matches []MatchGuess) error {
	if g.state.Phase != PhaseMatching {
		return ErrWrongPhase
	}

	host := g.currentHost()
	if host == nil || c.playerID != host.ID {
		return ErrNotTheHost
	}

	g.state.Matches = matches
	g.finishMatching()

	return nil
}

// matchingExpired assigns fallback guesses round-robin over the non-host
// players.
func (g *Game) matchingExpired() {
	guessable := g.guessablePlayers()
	if len(guessable) > 0 {
		matches := make([]MatchGuess, len(g.state.Shuffled))
		for i := range g.state.Shuffled {
			matches[i] = MatchGuess{
				AnswerIndex: i,
				PlayerID:    guessable[i%len(guessable)].ID,
			}
		}
		g.state.Matches = matches
	}

	g.finishMatching()
}

// finishMatching scores the round at the matching→reveal boundary and
// applies the host's score.
func (g *Game) finishMatching() {
	st := g.state

	st.Results = roundResults(st.Matches, st.Shuffled, st.Players)
	st.RoundScore = hostScore(st.Results, g.cfg.perfectBonus)

	host := g.currentHost()
	if host != nil {
		host.Score += st.RoundScore.Score
	}

	g.store.SaveMatches(g.registry.CurrentRoomCode(), st.CurrentRound, st.Matches)

	g.broadcast(MatchesSubmittedMessage{
		Type:    "matches_submitted",
		Matches: st.Matches,
		Host:    host,
	})

	g.enterReveal()
}

// ---- reveal ----

func (g *Game) enterReveal() {
	g.transitionTo(PhaseReveal)
	g.state.RevealIndex = 0

	g.broadcast(PhaseChangedMessage{
		Type:         "phase_changed",
		Phase:        PhaseReveal,
		CurrentRound: g.state.CurrentRound,
		TotalRounds:  g.state.TotalRounds,
		Host:         g.currentHost(),
		Theme:        g.state.Theme,
		SuddenDeath:  g.state.SuddenDeath,
	})

	g.timers.start(timerReveal, g.cfg.revealPreRoll)
}

// revealStep advances the reveal cursor one result at a time on a fixed
// delay, then moves to round end.
func (g *Game) revealStep() {
	st := g.state

	if st.RevealIndex >= len(st.Results) {
		g.enterRoundEnd()
		return
	}

	r := st.Results[st.RevealIndex]

	g.broadcast(RevealResultMessage{
		Type:          "reveal_result",
		Index:         st.RevealIndex,
		Total:         len(st.Results),
		GuessedPlayer: r.GuessedPlayer,
		ActualPlayer:  r.ActualPlayer,
		Answer:        r.Answer,
		IsCorrect:     r.IsCorrect,
	})

	st.RevealIndex++

	g.timers.start(timerReveal, g.cfg.revealStep)
}

// ---- round end ----

func (g *Game) enterRoundEnd() {
	g.transitionTo(PhaseRoundEnd)

	st := g.state
	host := g.currentHost()

	var next *Player
	switch {
	case st.SuddenDeath:
		if tied := g.tiedPlayers(); st.TiedHostCursor+1 < len(tied) {
			next = tied[st.TiedHostCursor+1]
		}
	case st.CurrentRound < st.TotalRounds && len(st.Players) > 0:
		next = st.Players[(st.HostIndex+1)%len(st.Players)]
	}

	g.store.UpdateScores(g.registry.CurrentRoomCode(), st.Players)

	g.broadcast(RoundEndMessage{
		Type:         "round_end",
		Scoreboard:   g.scoreboard(),
		CurrentHost:  host,
		HostScore:    st.RoundScore,
		NextHost:     next,
		CurrentRound: st.CurrentRound,
		TotalRounds:  st.TotalRounds,
	})

	g.timers.start(timerRoundEnd, g.cfg.roundEndTimer)
}

// advanceRound runs on round_end exit, via timer expiry or an explicit
// next_round request.
func (g *Game) advanceRound() {
	if g.state.SuddenDeath {
		g.advanceSuddenDeath()
		return
	}

	g.state.HostIndex = (g.state.HostIndex + 1) % len(g.state.Players)

	if g.state.CurrentRound >= g.state.TotalRounds {
		g.endOfGameCheck()
		return
	}

	g.enterThemeSelect()
}

// endOfGameCheck declares a winner if the top score is unique; otherwise the
// tied leaders go to sudden death.
func (g *Game) endOfGameCheck() {
	leaders := g.topScorers(g.state.Players)

	if len(leaders) == 1 {
		g.gameOver(leaders[0])
		return
	}

	g.startSuddenDeath(leaders)
}

// topScorers returns every player from the given set holding its maximum
// score.
func (g *Game) topScorers(players []*Player) []*Player {
	var leaders []*Player
	best := 0

	for _, p := range players {
		switch {
		case leaders == nil || p.Score > best:
			leaders = []*Player{p}
			best = p.Score
		case p.Score == best:
			leaders = append(leaders, p)
		}
	}

	return leaders
}

func (g *Game) gameOver(winner *Player) {
	g.transitionTo(PhaseGameOver)

	board := g.scoreboard()

	g.log.Info().
		Str("room", g.registry.CurrentRoomCode()).
		Str("winner", winner.Name).
		Bool("suddenDeath", g.state.SuddenDeath).
		Msg("game over")

	g.broadcast(GameOverMessage{
		Type:              "game_over",
		Winner:            winner,
		Scoreboard:        board,
		WasSuddenDeath:    g.state.SuddenDeath,
		SuddenDeathRounds: g.state.SuddenDeathRound,
	})

	g.store.SaveHistory(g.registry.CurrentRoomCode(), winner.Name, board)
	g.store.UpdateGameStatus(g.registry.CurrentRoomCode(), "completed")
}

// ---- host grace period ----

// graceExpired fires when a disconnected host never came back: the phase
// advances with the same fallback it would use on an ordinary timeout.
func (g *Game) graceExpired() {
	g.gracePlayerID = ""

	switch g.state.Phase {
	case PhaseThemeSelect:
		g.themeSelectExpired()
	case PhaseMatching:
		g.matchingExpired()
	}
}
