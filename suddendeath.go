/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import "fmt"

// Sudden death settles a tie for first place. Only the tied players rotate
// as host, in their original join order; everyone else still answers and
// scores normally. After every tied player has hosted once, the tie is
// re-evaluated among the tied set: a unique leader wins, otherwise another
// sudden death round runs. A configured cap keeps the game from looping
// forever; hitting it forces the tie in favor of the earliest-joined
// remaining leader.

func (g *Game) startSuddenDeath(tied []*Player) {
	st := g.state

	st.SuddenDeath = true
	st.SuddenDeathRound = 1
	st.TiedHostCursor = 0

	st.TiedIDs = make(map[string]bool, len(tied))
	for _, p := range tied {
		st.TiedIDs[p.ID] = true
	}
	for _, p := range st.Players {
		p.IsTied = st.TiedIDs[p.ID]
	}

	players := g.tiedPlayers()

	g.log.Info().
		Str("room", g.registry.CurrentRoomCode()).
		Int("tied", len(players)).
		Msg("sudden death")

	g.broadcast(SuddenDeathStartMessage{
		Type:        "sudden_death_start",
		TiedPlayers: players,
		Message:     fmt.Sprintf("%d players are tied for first! Sudden death!", len(players)),
		Round:       1,
	})

	g.enterThemeSelect()
}

// advanceSuddenDeath runs on round_end exit while sudden death is active.
func (g *Game) advanceSuddenDeath() {
	st := g.state

	st.TiedHostCursor++

	// More tied players still to host this sudden death round.
	if st.TiedHostCursor < len(g.tiedPlayers()) {
		g.enterThemeSelect()
		return
	}

	leaders := g.topScorers(g.tiedPlayers())

	if len(leaders) == 1 {
		g.gameOver(leaders[0])
		return
	}

	if st.SuddenDeathRound >= g.cfg.maxSuddenDeathRounds {
		// Still tied after the cap: force the break rather than loop
		// forever.
		winner := leaders[0]
		for _, p := range leaders[1:] {
			if p.JoinOrder < winner.JoinOrder {
				winner = p
			}
		}

		g.log.Warn().
			Str("room", g.registry.CurrentRoomCode()).
			Int("rounds", st.SuddenDeathRound).
			Str("winner", winner.Name).
			Msg("sudden death cap reached, forcing tie-break")

		g.gameOver(winner)
		return
	}

	// Narrow the tied set to the current leaders and go again.
	st.TiedIDs = make(map[string]bool, len(leaders))
	for _, p := range leaders {
		st.TiedIDs[p.ID] = true
	}
	for _, p := range st.Players {
		p.IsTied = st.TiedIDs[p.ID]
	}

	st.SuddenDeathRound++
	st.TiedHostCursor = 0

	g.broadcast(SuddenDeathStartMessage{
		Type:        "sudden_death_start",
		TiedPlayers: leaders,
		Message:     fmt.Sprintf("Still tied! Sudden death round %d!", st.SuddenDeathRound),
		Round:       st.SuddenDeathRound,
	})

	g.enterThemeSelect()
}
