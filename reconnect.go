/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

// handleReconnect rebinds a fresh connection to an existing player. The
// session token handed out at join time is the only credential; a match
// restores the player's connected state and resends whatever phase data
// they need to resume, including the exact in-flight matching payload if
// they are the host mid-matching.
func (g *Game) handleReconnect(c *Client, msg ClientMessage) {
	player := g.playerByID(msg.PlayerID)
	if player == nil {
		g.sendTo(c, ReconnectFailedMessage{
			Type:    "reconnect_failed",
			Message: ErrUnknownPlayer.Error(),
		})
		return
	}

	if msg.SessionToken == "" || msg.SessionToken != player.sessionToken {
		g.sendTo(c, ReconnectFailedMessage{
			Type:    "reconnect_failed",
			Message: ErrBadSessionToken.Error(),
		})
		return
	}

	c.role = rolePlayer
	c.playerID = player.ID
	player.IsConnected = true

	// A pending auto-advance for this host is cancelled by making it back
	// in time.
	if g.gracePlayerID == player.ID {
		g.timers.clear(timerGrace)
		g.gracePlayerID = ""
	}

	g.log.Debug().Str("player", player.Name).Msg("player reconnected")

	g.broadcast(PlayerReconnectedMessage{
		Type:       "player_reconnected",
		PlayerID:   player.ID,
		PlayerName: player.Name,
	})

	restored := ReconnectedMessage{
		Type:      "reconnected",
		Player:    player,
		GameState: g.snapshot(),
	}

	for _, a := range g.state.Answers {
		if a.PlayerID == player.ID && !a.Penalty {
			restored.SubmittedAnswer = a.Text
			break
		}
	}

	if player.IsHost {
		switch g.state.Phase {
		case PhaseThemeSelect:
			restored.Themes = g.state.ThemeChoices
		case PhaseMatching:
			restored.Matching = g.matchingPayload()
		}
	}

	g.sendTo(c, restored)
}

func (g *Game) snapshot() *GameSnapshot {
	return &GameSnapshot{
		Phase:        g.state.Phase,
		Players:      g.state.Players,
		CurrentRound: g.state.CurrentRound,
		TotalRounds:  g.state.TotalRounds,
		Theme:        g.state.Theme,
		Host:         g.currentHost(),
		SuddenDeath:  g.state.SuddenDeath,
		RevealIndex:  g.state.RevealIndex,
	}
}
