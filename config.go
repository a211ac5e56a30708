package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind     string
	port     int
	prefix   string
	profile  bool
	tlsCert  string
	tlsKey   string
	verbose  bool
	version  bool
	database string

	minPlayers int
	maxPlayers int
	rotations  int

	themeTimer    time.Duration
	answerTimer   time.Duration
	matchTimer    time.Duration
	roundEndTimer time.Duration
	revealPreRoll time.Duration
	revealStep    time.Duration
	gracePeriod   time.Duration
	roomRetention time.Duration

	noAnswerPenalty      int
	perfectBonus         int
	maxSuddenDeathRounds int

	themeAPIURL string
	themeAPIKey string
	themeModel  string
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.minPlayers < 3 {
		return fmt.Errorf("invalid minimum player count (must be at least 3): %d", c.minPlayers)
	}
	if c.maxPlayers < c.minPlayers {
		return fmt.Errorf("invalid maximum player count (must be at least --min-players): %d", c.maxPlayers)
	}
	if c.rotations < 1 {
		return fmt.Errorf("invalid rotation count (must be at least 1): %d", c.rotations)
	}
	if c.maxSuddenDeathRounds < 1 {
		return fmt.Errorf("invalid sudden death cap (must be at least 1): %d", c.maxSuddenDeathRounds)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("WHOSAIDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "whosaidit",
		Short:         "A party game of guessing who said what, played on phones around a shared screen.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: WHOSAIDIT_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: WHOSAIDIT_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: WHOSAIDIT_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: WHOSAIDIT_PROFILE)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: WHOSAIDIT_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: WHOSAIDIT_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: WHOSAIDIT_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: WHOSAIDIT_VERSION)")
	fs.StringVar(&cfg.database, "db", "", "path to sqlite database for game history, empty to disable (env: WHOSAIDIT_DB)")

	fs.IntVar(&cfg.minPlayers, "min-players", 3, "minimum players required to start a game (env: WHOSAIDIT_MIN_PLAYERS)")
	fs.IntVar(&cfg.maxPlayers, "max-players", 10, "maximum players allowed in a room (env: WHOSAIDIT_MAX_PLAYERS)")
	fs.IntVar(&cfg.rotations, "rotations", 1, "number of times each player hosts per game (env: WHOSAIDIT_ROTATIONS)")

	fs.DurationVar(&cfg.themeTimer, "theme-timer", 30*time.Second, "time allowed for theme selection (env: WHOSAIDIT_THEME_TIMER)")
	fs.DurationVar(&cfg.answerTimer, "answer-timer", 60*time.Second, "time allowed for answering (env: WHOSAIDIT_ANSWER_TIMER)")
	fs.DurationVar(&cfg.matchTimer, "match-timer", 90*time.Second, "time allowed for the host to match answers (env: WHOSAIDIT_MATCH_TIMER)")
	fs.DurationVar(&cfg.roundEndTimer, "round-end-timer", 15*time.Second, "time spent on the round scoreboard (env: WHOSAIDIT_ROUND_END_TIMER)")
	fs.DurationVar(&cfg.revealPreRoll, "reveal-pre-roll", 3*time.Second, "delay before the first reveal (env: WHOSAIDIT_REVEAL_PRE_ROLL)")
	fs.DurationVar(&cfg.revealStep, "reveal-step", 4*time.Second, "delay between reveals (env: WHOSAIDIT_REVEAL_STEP)")
	fs.DurationVar(&cfg.gracePeriod, "grace-period", 15*time.Second, "reconnection window for a disconnected host (env: WHOSAIDIT_GRACE_PERIOD)")
	fs.DurationVar(&cfg.roomRetention, "room-retention", 24*time.Hour, "age after which stored rooms are purged (env: WHOSAIDIT_ROOM_RETENTION)")

	fs.IntVar(&cfg.noAnswerPenalty, "no-answer-penalty", -2, "score adjustment for players who never answer (env: WHOSAIDIT_NO_ANSWER_PENALTY)")
	fs.IntVar(&cfg.perfectBonus, "perfect-bonus", 3, "bonus for a host matching every answer correctly (env: WHOSAIDIT_PERFECT_BONUS)")
	fs.IntVar(&cfg.maxSuddenDeathRounds, "max-sudden-death-rounds", 5, "sudden death rounds before the tie is forced (env: WHOSAIDIT_MAX_SUDDEN_DEATH_ROUNDS)")

	fs.StringVar(&cfg.themeAPIURL, "theme-api-url", "", "chat completions endpoint for theme generation (env: WHOSAIDIT_THEME_API_URL)")
	fs.StringVar(&cfg.themeAPIKey, "theme-api-key", "", "api key for theme generation (env: WHOSAIDIT_THEME_API_KEY)")
	fs.StringVar(&cfg.themeModel, "theme-model", "gpt-4o-mini", "model for theme generation (env: WHOSAIDIT_THEME_MODEL)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("whosaidit v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
