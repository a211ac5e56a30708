/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

// RoundResult pairs a host guess with the actual authorship of an answer.
type RoundResult struct {
	GuessedPlayer *Player `json:"guessedPlayer"`
	ActualPlayer  *Player `json:"actualPlayer"`
	Answer        string  `json:"answer"`
	IsCorrect     bool    `json:"isCorrect"`
}

// HostScore summarizes how the host did in a single round.
type HostScore struct {
	Score          int  `json:"score"`
	CorrectMatches int  `json:"correctMatches"`
	TotalMatches   int  `json:"totalMatches"`
	IsPerfect      bool `json:"isPerfect"`
}

// roundResults scores the host's guesses against the shuffled answer
// ordering shown during matching. Indices are positions in the shuffle,
// never submission order. Guesses that point outside the shuffle or at an
// unknown player are dropped rather than treated as errors.
func roundResults(matches []MatchGuess, shuffled []Answer, players []*Player) []RoundResult {
	byID := make(map[string]*Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}

	results := make([]RoundResult, 0, len(matches))

	for _, m := range matches {
		if m.AnswerIndex < 0 || m.AnswerIndex >= len(shuffled) {
			continue
		}

		answer := shuffled[m.AnswerIndex]

		guessed, ok := byID[m.PlayerID]
		if !ok {
			continue
		}

		actual, ok := byID[answer.PlayerID]
		if !ok {
			continue
		}

		results = append(results, RoundResult{
			GuessedPlayer: guessed,
			ActualPlayer:  actual,
			Answer:        answer.Text,
			IsCorrect:     guessed.ID == actual.ID,
		})
	}

	return results
}

// hostScore computes the host's round score: one point per correct match,
// plus perfectBonus when every match in the set was correct. An empty match
// set never counts as perfect.
func hostScore(results []RoundResult, perfectBonus int) HostScore {
	score := HostScore{
		TotalMatches: len(results),
	}

	for _, r := range results {
		if r.IsCorrect {
			score.CorrectMatches++
		}
	}

	score.Score = score.CorrectMatches
	score.IsPerfect = score.TotalMatches > 0 && score.CorrectMatches == score.TotalMatches
	if score.IsPerfect {
		score.Score += perfectBonus
	}

	return score
}
