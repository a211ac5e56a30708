/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// Store writes a best-effort record of games to sqlite. Persistence is never
// allowed to block or fail the live game: every method is safe on a nil
// receiver and every write failure is logged and swallowed.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

const storeSchema = `
CREATE TABLE IF NOT EXISTS games (
	room_code    TEXT PRIMARY KEY,
	created_at   TIMESTAMP NOT NULL,
	total_rounds INTEGER NOT NULL,
	status       TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS rounds (
	room_code TEXT NOT NULL,
	round     INTEGER NOT NULL,
	theme     TEXT NOT NULL,
	host_name TEXT NOT NULL,
	PRIMARY KEY (room_code, round)
);
CREATE TABLE IF NOT EXISTS answers (
	room_code TEXT NOT NULL,
	round     INTEGER NOT NULL,
	player_id TEXT NOT NULL,
	answer    TEXT NOT NULL,
	penalty   INTEGER NOT NULL,
	PRIMARY KEY (room_code, round, player_id)
);
CREATE TABLE IF NOT EXISTS matches (
	room_code TEXT NOT NULL,
	round     INTEGER NOT NULL,
	matches   TEXT NOT NULL,
	PRIMARY KEY (room_code, round)
);
CREATE TABLE IF NOT EXISTS scores (
	room_code TEXT NOT NULL,
	player_id TEXT NOT NULL,
	name      TEXT NOT NULL,
	score     INTEGER NOT NULL,
	PRIMARY KEY (room_code, player_id)
);
CREATE TABLE IF NOT EXISTS history (
	room_code   TEXT PRIMARY KEY,
	finished_at TIMESTAMP NOT NULL,
	winner_name TEXT NOT NULL,
	scoreboard  TEXT NOT NULL
);
`

func newStore(cfg *Config, logger zerolog.Logger) *Store {
	if cfg.database == "" {
		return nil
	}

	db, err := sql.Open("sqlite3", cfg.database)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.database).Msg("history database unavailable")
		return nil
	}

	if _, err := db.Exec(storeSchema); err != nil {
		logger.Warn().Err(err).Msg("history schema setup failed")
		_ = db.Close()
		return nil
	}

	return &Store{
		db:  db,
		log: logger,
	}
}

func (s *Store) CreateGame(roomCode string, totalRounds int) {
	if s == nil {
		return
	}

	_, err := s.db.Exec(
		`INSERT INTO games (room_code, created_at, total_rounds, status) VALUES (?, ?, ?, 'active')
		 ON CONFLICT(room_code) DO UPDATE SET total_rounds = excluded.total_rounds, status = 'active'`,
		roomCode, time.Now(), totalRounds,
	)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to record game")
	}
}

func (s *Store) UpdateGameStatus(roomCode, status string) {
	if s == nil {
		return
	}

	_, err := s.db.Exec(`UPDATE games SET status = ? WHERE room_code = ?`, status, roomCode)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to update game status")
	}
}

func (s *Store) CreateRound(roomCode string, round int, theme, hostName string) {
	if s == nil {
		return
	}

	_, err := s.db.Exec(
		`INSERT INTO rounds (room_code, round, theme, host_name) VALUES (?, ?, ?, ?)
		 ON CONFLICT(room_code, round) DO UPDATE SET theme = excluded.theme, host_name = excluded.host_name`,
		roomCode, round, theme, hostName,
	)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to record round")
	}
}

func (s *Store) SaveAnswers(roomCode string, round int, answers []Answer) {
	if s == nil {
		return
	}

	for _, a := range answers {
		_, err := s.db.Exec(
			`INSERT INTO answers (room_code, round, player_id, answer, penalty) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(room_code, round, player_id) DO UPDATE SET answer = excluded.answer, penalty = excluded.penalty`,
			roomCode, round, a.PlayerID, a.Text, a.Penalty,
		)
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to record answer")
			return
		}
	}
}

func (s *Store) SaveMatches(roomCode string, round int, matches []MatchGuess) {
	if s == nil {
		return
	}

	encoded, err := json.Marshal(matches)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to encode matches")
		return
	}

	_, err = s.db.Exec(
		`INSERT INTO matches (room_code, round, matches) VALUES (?, ?, ?)
		 ON CONFLICT(room_code, round) DO UPDATE SET matches = excluded.matches`,
		roomCode, round, string(encoded),
	)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to record matches")
	}
}

func (s *Store) UpdateScores(roomCode string, players []*Player) {
	if s == nil {
		return
	}

	for _, p := range players {
		_, err := s.db.Exec(
			`INSERT INTO scores (room_code, player_id, name, score) VALUES (?, ?, ?, ?)
			 ON CONFLICT(room_code, player_id) DO UPDATE SET name = excluded.name, score = excluded.score`,
			roomCode, p.ID, p.Name, p.Score,
		)
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to record scores")
			return
		}
	}
}

func (s *Store) SaveHistory(roomCode, winnerName string, scoreboard []*Player) {
	if s == nil {
		return
	}

	encoded, err := json.Marshal(scoreboard)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to encode scoreboard")
		return
	}

	_, err = s.db.Exec(
		`INSERT INTO history (room_code, finished_at, winner_name, scoreboard) VALUES (?, ?, ?, ?)
		 ON CONFLICT(room_code) DO UPDATE SET finished_at = excluded.finished_at, winner_name = excluded.winner_name, scoreboard = excluded.scoreboard`,
		roomCode, time.Now(), winnerName, string(encoded),
	)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to record history")
	}
}

// PurgeStaleRooms drops games and their rows older than the retention
// window.
func (s *Store) PurgeStaleRooms(retention time.Duration) {
	if s == nil {
		return
	}

	cutoff := time.Now().Add(-retention)

	stale, err := s.db.Query(`SELECT room_code FROM games WHERE created_at < ?`, cutoff)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to query stale rooms")
		return
	}

	codes := []string{}
	for stale.Next() {
		var code string
		if err := stale.Scan(&code); err != nil {
			break
		}
		codes = append(codes, code)
	}
	_ = stale.Close()

	for _, code := range codes {
		for _, table := range []string{"answers", "matches", "rounds", "scores", "history", "games"} {
			if _, err := s.db.Exec(`DELETE FROM `+table+` WHERE room_code = ?`, code); err != nil {
				s.log.Warn().Err(err).Str("room", code).Msg("failed to purge stale room")
			}
		}
	}
}

func (s *Store) Close() {
	if s == nil {
		return
	}
	_ = s.db.Close()
}
