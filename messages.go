// Whosaidit wire messages.
//
// Clients (player phones, the shared display, and the host's phone view)
// talk JSON over a per-room websocket. Every message carries a "type" field;
// the remaining fields depend on the type. Client commands share a single
// struct with omitempty fields, server events each get their own struct.

package main

import "time"

// Commands coming from clients
type ClientMessage struct {
	Type         string       `json:"type"`                   // see the case list in readPump
	Name         string       `json:"name,omitempty"`         // join_room
	RoomCode     string       `json:"roomCode,omitempty"`     // join_room
	PlayerID     string       `json:"playerId,omitempty"`     // join_as_host_phone / reconnect_player
	SessionToken string       `json:"sessionToken,omitempty"` // reconnect_player
	Theme        string       `json:"theme,omitempty"`        // host_select_theme
	Answer       string       `json:"answer,omitempty"`       // submit_answer
	Matches      []MatchGuess `json:"matches,omitempty"`      // host_submit_matches
}

// MatchGuess maps a position in the shuffled answer list to a guessed author.
type MatchGuess struct {
	AnswerIndex int    `json:"answerIndex"`
	PlayerID    string `json:"playerId"`
}

type RoomJoinedMessage struct {
	Type         string    `json:"type"` // "room_joined"
	RoomCode     string    `json:"roomCode"`
	Player       *Player   `json:"player,omitempty"`
	SessionToken string    `json:"sessionToken,omitempty"`
	Players      []*Player `json:"players"`
}

type JoinErrorMessage struct {
	Type    string `json:"type"` // "join_error"
	Message string `json:"message"`
}

type PlayerJoinedMessage struct {
	Type     string    `json:"type"` // "player_joined"
	Player   *Player   `json:"player"`
	Players  []*Player `json:"players"`
	CanStart bool      `json:"canStart"`
}

type GameStartedMessage struct {
	Type         string `json:"type"` // "game_started"
	TotalRounds  int    `json:"totalRounds"`
	CurrentRound int    `json:"currentRound"`
}

type PhaseChangedMessage struct {
	Type         string    `json:"type"` // "phase_changed"
	Phase        Phase     `json:"phase"`
	CurrentRound int       `json:"currentRound"`
	TotalRounds  int       `json:"totalRounds"`
	Host         *Player   `json:"host,omitempty"`
	Theme        string    `json:"theme,omitempty"`
	SuddenDeath  bool      `json:"suddenDeath,omitempty"`
	Seconds      int       `json:"seconds,omitempty"` // full phase duration
	Players      []*Player `json:"players,omitempty"`
}

type ThemesGeneratedMessage struct {
	Type   string   `json:"type"` // "themes_generated"
	Themes []string `json:"themes"`
}

type ThemeSelectedMessage struct {
	Type     string `json:"type"` // "theme_selected"
	Theme    string `json:"theme"`
	HostName string `json:"hostName"`
}

type SubmissionProgressMessage struct {
	Type      string `json:"type"` // "submission_progress"
	Submitted int    `json:"submitted"`
	Total     int    `json:"total"`
}

type PenaltyAppliedMessage struct {
	Type    string `json:"type"` // "penalty_applied"
	Penalty int    `json:"penalty"`
	Reason  string `json:"reason"`
}

type TimerUpdateMessage struct {
	Type         string `json:"type"` // "timer_update"
	Phase        Phase  `json:"phase"`
	Remaining    int    `json:"remaining"`
	TotalSeconds int    `json:"totalSeconds"`
}

type MatchingPhaseStartMessage struct {
	Type    string           `json:"type"` // "matching_phase_start"
	Answers []ShuffledAnswer `json:"answers"`
	Players []*Player        `json:"players"`
}

// ShuffledAnswer is an answer as shown to the host: its position in the
// round's shuffle, with authorship stripped.
type ShuffledAnswer struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

type MatchesSubmittedMessage struct {
	Type    string       `json:"type"` // "matches_submitted"
	Matches []MatchGuess `json:"matches"`
	Host    *Player      `json:"host"`
}

type RevealResultMessage struct {
	Type          string  `json:"type"` // "reveal_result"
	Index         int     `json:"index"`
	Total         int     `json:"total"`
	GuessedPlayer *Player `json:"guessedPlayer"`
	ActualPlayer  *Player `json:"actualPlayer"`
	Answer        string  `json:"answer"`
	IsCorrect     bool    `json:"isCorrect"`
}

type RoundEndMessage struct {
	Type         string    `json:"type"` // "round_end"
	Scoreboard   []*Player `json:"scoreboard"`
	CurrentHost  *Player   `json:"currentHost"`
	HostScore    HostScore `json:"hostScore"`
	NextHost     *Player   `json:"nextHost,omitempty"`
	CurrentRound int       `json:"currentRound"`
	TotalRounds  int       `json:"totalRounds"`
}

type SuddenDeathStartMessage struct {
	Type        string    `json:"type"` // "sudden_death_start"
	TiedPlayers []*Player `json:"tiedPlayers"`
	Message     string    `json:"message"`
	Round       int       `json:"round"`
}

type GameOverMessage struct {
	Type              string    `json:"type"` // "game_over"
	Winner            *Player   `json:"winner"`
	Scoreboard        []*Player `json:"scoreboard"`
	WasSuddenDeath    bool      `json:"wasSuddenDeath"`
	SuddenDeathRounds int       `json:"suddenDeathRounds"`
}

type GameResetMessage struct {
	Type    string    `json:"type"` // "game_reset"
	Players []*Player `json:"players"`
}

type PlayerDisconnectedMessage struct {
	Type         string `json:"type"` // "player_disconnected"
	PlayerID     string `json:"playerId"`
	PlayerName   string `json:"playerName"`
	MayReconnect bool   `json:"mayReconnect"`
}

type PlayerReconnectedMessage struct {
	Type       string `json:"type"` // "player_reconnected"
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type ReconnectedMessage struct {
	Type            string                     `json:"type"` // "reconnected"
	Player          *Player                    `json:"player"`
	GameState       *GameSnapshot              `json:"gameState"`
	SubmittedAnswer string                     `json:"submittedAnswer,omitempty"`
	Themes          []string                   `json:"themes,omitempty"`
	Matching        *MatchingPhaseStartMessage `json:"matching,omitempty"`
}

type ReconnectFailedMessage struct {
	Type    string `json:"type"` // "reconnect_failed"
	Message string `json:"message"`
}

type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

// GameSnapshot is the read-only view of the room a reconnecting client needs
// to redraw itself.
type GameSnapshot struct {
	Phase        Phase     `json:"phase"`
	Players      []*Player `json:"players"`
	CurrentRound int       `json:"currentRound"`
	TotalRounds  int       `json:"totalRounds"`
	Theme        string    `json:"theme,omitempty"`
	Host         *Player   `json:"host,omitempty"`
	SuddenDeath  bool      `json:"suddenDeath"`
	RevealIndex  int       `json:"revealIndex"`
}

// Answer is one player's submission for the current round. Penalty answers
// are synthesized placeholders for players who never submitted.
type Answer struct {
	PlayerID    string    `json:"playerId"`
	Text        string    `json:"text"`
	SubmittedAt time.Time `json:"submittedAt"`
	Penalty     bool      `json:"penalty"`
}
