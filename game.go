// Whosaidit game orchestrator.
//
// One active room per process. Players join from their phones with a 4-letter
// room code while a shared display shows the board. Each round one player
// hosts: the others answer a theme prompt, the answers are shuffled, and the
// host tries to match every answer to its author. Correct matches score
// points for the host, a perfect round earns a bonus, and hosting rotates in
// join order until everyone has hosted the configured number of times. Ties
// for first place are settled by sudden death rounds among the tied players.
//
// All game state is owned by a single orchestrator goroutine. Websocket
// reads, timer ticks and expiries, and theme provider results are all
// delivered as events into that one loop, so there is no concurrent
// mutation anywhere.

package main

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

type Phase string

const (
	PhaseLobby       Phase = "lobby"
	PhaseThemeSelect Phase = "theme_select"
	PhaseAnswering   Phase = "answering"
	PhaseMatching    Phase = "matching"
	PhaseReveal      Phase = "reveal"
	PhaseRoundEnd    Phase = "round_end"
	PhaseGameOver    Phase = "game_over"
)

const (
	maxNameLength   = 20
	maxAnswerLength = 100
	noAnswerText    = "[No Answer]"
)

// truncateRunes caps s at limit characters, never splitting a multibyte
// rune the way a byte slice would.
func truncateRunes(s string, limit int) string {
	runes := []rune(s)

	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit])
}

// Player is one roster entry. The session token never leaves the server
// except in the room_joined message for the owning client.
type Player struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Score       int    `json:"score"`
	IsHost      bool   `json:"isHost"`
	IsConnected bool   `json:"isConnected"`
	JoinOrder   int    `json:"joinOrder"`
	IsTied      bool   `json:"isTiedPlayer"`

	sessionToken string
}

// GameState is the aggregate the orchestrator mutates. Shuffled is the
// round's answer ordering as shown to the host; it is fixed once per round
// and is the only index space match guesses are scored against.
type GameState struct {
	Phase        Phase
	Players      []*Player
	CurrentRound int
	TotalRounds  int
	HostIndex    int

	Theme        string
	ThemeChoices []string

	Answers     []Answer
	Shuffled    []Answer
	Matches     []MatchGuess
	Results     []RoundResult
	RoundScore  HostScore
	RevealIndex int

	SuddenDeath      bool
	SuddenDeathRound int
	TiedIDs          map[string]bool
	TiedHostCursor   int

	nextJoinOrder int
	themeGen      uint64
}

const (
	rolePlayer  = "player"
	roleDisplay = "display"
)

type Client struct {
	conn *websocket.Conn
	send chan any

	// Session binding, written only by the orchestrator loop.
	role     string
	playerID string
}

type command struct {
	client *Client
	msg    ClientMessage
}

type themeResult struct {
	gen    uint64
	themes []string
	err    error
}

type Game struct {
	cfg      *Config
	log      zerolog.Logger
	registry *Registry
	themes   ThemeProvider
	store    *Store
	rng      *rand.Rand

	clients map[*Client]struct{}
	state   *GameState

	// Pending host grace period, empty when none.
	gracePlayerID string

	register     chan *Client
	unregister   chan *Client
	commands     chan command
	themeResults chan themeResult
	timers       *timerSet
	done         chan struct{}
}

func newGame(cfg *Config, logger zerolog.Logger, registry *Registry, themes ThemeProvider, store *Store) (*Game, error) {
	code, err := registry.CreateRoom()
	if err != nil {
		return nil, err
	}

	logger.Info().Str("room", code).Msg("room created")

	return &Game{
		cfg:      cfg,
		log:      logger,
		registry: registry,
		themes:   themes,
		store:    store,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		clients:  make(map[*Client]struct{}),
		state: &GameState{
			Phase: PhaseLobby,
		},
		register:     make(chan *Client, 16),
		unregister:   make(chan *Client, 16),
		commands:     make(chan command, 256),
		themeResults: make(chan themeResult, 4),
		timers:       newTimerSet(),
		done:         make(chan struct{}),
	}, nil
}

func (g *Game) run() {
	for {
		select {
		case c := <-g.register:
			g.clients[c] = struct{}{}
		case c := <-g.unregister:
			g.handleDisconnect(c)
		case cmd := <-g.commands:
			g.handleCommand(cmd.client, cmd.msg)
		case ev := <-g.timers.events:
			g.handleTimerEvent(ev)
		case tr := <-g.themeResults:
			g.handleThemeResult(tr)
		case <-g.done:
			g.timers.clearAll()
			for c := range g.clients {
				close(c.send)
				_ = c.conn.Close()
				delete(g.clients, c)
			}
			return
		}
	}
}

func (g *Game) stop() {
	close(g.done)
}

// handleCommand is the single entry point for everything clients send.
func (g *Game) handleCommand(c *Client, msg ClientMessage) {
	var err error

	switch msg.Type {
	case "join_room":
		err = g.handleJoinRoom(c, msg)
	case "join_as_display":
		err = g.handleJoinDisplay(c)
	case "join_as_host_phone":
		err = g.handleJoinHostPhone(c, msg)
	case "start_game", "display_start_game":
		err = g.handleStartGame(c, msg.Type == "display_start_game")
	case "request_themes":
		err = g.handleRequestThemes(c)
	case "host_select_theme":
		err = g.handleSelectTheme(c, msg.Theme)
	case "submit_answer":
		err = g.handleSubmitAnswer(c, msg.Answer)
	case "request_matching_data":
		err = g.handleRequestMatchingData(c)
	case "host_submit_matches":
		err = g.handleSubmitMatches(c, msg.Matches)
	case "next_round":
		err = g.handleNextRound(c)
	case "play_again":
		err = g.handlePlayAgain(c)
	case "reconnect_player":
		g.handleReconnect(c, msg)
	default:
		// unknown types are ignored
	}

	if err != nil {
		g.sendTo(c, ErrorMessage{
			Type:    "error",
			Message: err.Error(),
		})
	}
}

func (g *Game) handleJoinRoom(c *Client, msg ClientMessage) error {
	if !g.registry.ValidateRoom(msg.RoomCode) {
		g.sendTo(c, JoinErrorMessage{
			Type:    "join_error",
			Message: ErrRoomNotFound.Error(),
		})
		return nil
	}

	if g.state.Phase != PhaseLobby {
		g.sendTo(c, JoinErrorMessage{
			Type:    "join_error",
			Message: ErrGameInProgress.Error(),
		})
		return nil
	}

	name := strings.TrimSpace(msg.Name)
	if name == "" {
		g.sendTo(c, JoinErrorMessage{
			Type:    "join_error",
			Message: ErrEmptyName.Error(),
		})
		return nil
	}
	name = truncateRunes(name, maxNameLength)

	if g.connectedCount() >= g.cfg.maxPlayers {
		g.sendTo(c, JoinErrorMessage{
			Type:    "join_error",
			Message: ErrRoomFull.Error(),
		})
		return nil
	}

	player := &Player{
		ID:           uuid.NewString(),
		Name:         g.dedupeName(name),
		IsConnected:  true,
		JoinOrder:    g.state.nextJoinOrder,
		sessionToken: uuid.NewString(),
	}
	g.state.nextJoinOrder++
	g.state.Players = append(g.state.Players, player)

	c.role = rolePlayer
	c.playerID = player.ID

	g.log.Debug().Str("player", player.Name).Str("room", g.registry.CurrentRoomCode()).Msg("player joined")

	g.sendTo(c, RoomJoinedMessage{
		Type:         "room_joined",
		RoomCode:     g.registry.CurrentRoomCode(),
		Player:       player,
		SessionToken: player.sessionToken,
		Players:      g.state.Players,
	})

	g.broadcast(PlayerJoinedMessage{
		Type:     "player_joined",
		Player:   player,
		Players:  g.state.Players,
		CanStart: g.connectedCount() >= g.cfg.minPlayers,
	})

	return nil
}

func (g *Game) handleJoinDisplay(c *Client) error {
	c.role = roleDisplay
	c.playerID = ""

	g.sendTo(c, RoomJoinedMessage{
		Type:     "room_joined",
		RoomCode: g.registry.CurrentRoomCode(),
		Players:  g.state.Players,
	})

	return nil
}

// handleJoinHostPhone attaches a second connection as a view for an existing
// player, typically the host opening the matching screen on their phone.
func (g *Game) handleJoinHostPhone(c *Client, msg ClientMessage) error {
	player := g.playerByID(msg.PlayerID)
	if player == nil {
		return ErrUnknownPlayer
	}

	c.role = rolePlayer
	c.playerID = player.ID

	g.sendTo(c, RoomJoinedMessage{
		Type:     "room_joined",
		RoomCode: g.registry.CurrentRoomCode(),
		Player:   player,
		Players:  g.state.Players,
	})

	if player.IsHost {
		switch g.state.Phase {
		case PhaseThemeSelect:
			if g.state.ThemeChoices != nil {
				g.sendTo(c, ThemesGeneratedMessage{
					Type:   "themes_generated",
					Themes: g.state.ThemeChoices,
				})
			}
		case PhaseMatching:
			g.sendTo(c, g.matchingPayload())
		}
	}

	return nil
}

func (g *Game) handleStartGame(c *Client, fromDisplay bool) error {
	if g.state.Phase != PhaseLobby {
		return ErrWrongPhase
	}

	if fromDisplay && c.role != roleDisplay {
		return ErrWrongPhase
	}
	if !fromDisplay {
		if c.playerID == "" {
			return ErrNotJoined
		}
		lead := g.lobbyLeader()
		if lead == nil || lead.ID != c.playerID {
			return ErrNotTheHost
		}
	}

	// Players who left before the game started drop off the roster; join
	// order keeps its gaps.
	kept := g.state.Players[:0]
	for _, p := range g.state.Players {
		if p.IsConnected {
			kept = append(kept, p)
		}
	}
	g.state.Players = kept

	if len(g.state.Players) < g.cfg.minPlayers {
		return ErrNotEnoughPlayers
	}

	g.state.TotalRounds = len(g.state.Players) * g.cfg.rotations
	g.state.CurrentRound = 0
	g.state.HostIndex = 0
	g.state.SuddenDeath = false
	g.state.SuddenDeathRound = 0
	g.state.TiedIDs = nil

	g.store.CreateGame(g.registry.CurrentRoomCode(), g.state.TotalRounds)

	g.log.Info().
		Str("room", g.registry.CurrentRoomCode()).
		Int("players", len(g.state.Players)).
		Int("rounds", g.state.TotalRounds).
		Msg("game started")

	g.broadcast(GameStartedMessage{
		Type:         "game_started",
		TotalRounds:  g.state.TotalRounds,
		CurrentRound: 1,
	})

	g.enterThemeSelect()

	return nil
}

func (g *Game) handleNextRound(c *Client) error {
	if g.state.Phase != PhaseRoundEnd {
		return ErrWrongPhase
	}

	g.advanceRound()

	return nil
}

func (g *Game) handlePlayAgain(c *Client) error {
	if g.state.Phase != PhaseGameOver {
		return ErrWrongPhase
	}

	for _, p := range g.state.Players {
		p.Score = 0
		p.IsHost = false
		p.IsTied = false
	}

	st := g.state
	st.Phase = PhaseLobby
	st.CurrentRound = 0
	st.TotalRounds = 0
	st.HostIndex = 0
	st.SuddenDeath = false
	st.SuddenDeathRound = 0
	st.TiedIDs = nil
	st.TiedHostCursor = 0
	g.resetRoundData()

	g.log.Info().Str("room", g.registry.CurrentRoomCode()).Msg("game reset")

	g.broadcast(GameResetMessage{
		Type:    "game_reset",
		Players: g.state.Players,
	})

	return nil
}

func (g *Game) handleDisconnect(c *Client) {
	if _, ok := g.clients[c]; !ok {
		return
	}
	delete(g.clients, c)
	close(c.send)

	g.clientGone(c)
}

// clientGone runs the player-side bookkeeping once a connection has been
// removed from the client set, whether its socket closed or it was dropped
// for falling behind on writes.
func (g *Game) clientGone(c *Client) {
	if c.playerID == "" {
		return
	}

	// Another connection may still be bound to the same player (host phone
	// view); only the last one counts as a disconnect.
	for other := range g.clients {
		if other.playerID == c.playerID {
			return
		}
	}

	player := g.playerByID(c.playerID)
	if player == nil {
		return
	}

	player.IsConnected = false

	mayReconnect := g.state.Phase != PhaseLobby && g.state.Phase != PhaseGameOver

	g.log.Debug().Str("player", player.Name).Bool("mayReconnect", mayReconnect).Msg("player disconnected")

	g.broadcast(PlayerDisconnectedMessage{
		Type:         "player_disconnected",
		PlayerID:     player.ID,
		PlayerName:   player.Name,
		MayReconnect: mayReconnect,
	})

	host := g.currentHost()
	if host != nil && host.ID == player.ID {
		switch g.state.Phase {
		case PhaseThemeSelect, PhaseMatching:
			g.gracePlayerID = player.ID
			g.timers.start(timerGrace, g.cfg.gracePeriod)
		}
	}
}

func (g *Game) handleTimerEvent(ev timerEvent) {
	if !g.timers.current(ev) {
		return
	}

	if !ev.expired {
		switch ev.name {
		case timerThemeSelect, timerAnswering, timerMatching, timerRoundEnd:
			g.broadcast(TimerUpdateMessage{
				Type:         "timer_update",
				Phase:        Phase(ev.name),
				Remaining:    ev.remaining,
				TotalSeconds: durationSeconds(g.phaseDuration(ev.name)),
			})
		}
		return
	}

	g.timers.expire(ev)

	switch ev.name {
	case timerThemeSelect:
		g.themeSelectExpired()
	case timerAnswering:
		g.answeringExpired()
	case timerMatching:
		g.matchingExpired()
	case timerReveal:
		g.revealStep()
	case timerRoundEnd:
		g.advanceRound()
	case timerGrace:
		g.graceExpired()
	}
}

func (g *Game) phaseDuration(name string) time.Duration {
	switch name {
	case timerThemeSelect:
		return g.cfg.themeTimer
	case timerAnswering:
		return g.cfg.answerTimer
	case timerMatching:
		return g.cfg.matchTimer
	case timerRoundEnd:
		return g.cfg.roundEndTimer
	}
	return 0
}

// ---- roster helpers ----

func (g *Game) playerByID(id string) *Player {
	for _, p := range g.state.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (g *Game) connectedCount() int {
	count := 0
	for _, p := range g.state.Players {
		if p.IsConnected {
			count++
		}
	}
	return count
}

// lobbyLeader is the earliest-joined connected player; before a game starts
// they act as the room owner who may start it.
func (g *Game) lobbyLeader() *Player {
	var lead *Player
	for _, p := range g.state.Players {
		if !p.IsConnected {
			continue
		}
		if lead == nil || p.JoinOrder < lead.JoinOrder {
			lead = p
		}
	}
	return lead
}

func (g *Game) dedupeName(name string) string {
	taken := make(map[string]bool, len(g.state.Players))
	for _, p := range g.state.Players {
		taken[p.Name] = true
	}

	if !taken[name] {
		return name
	}

	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", name, n)
		if !taken[candidate] {
			return candidate
		}
	}
}

// currentHost returns the acting host for the current round, or nil in the
// lobby and at game over.
func (g *Game) currentHost() *Player {
	switch g.state.Phase {
	case PhaseLobby, PhaseGameOver:
		return nil
	}

	if g.state.SuddenDeath {
		tied := g.tiedPlayers()
		if g.state.TiedHostCursor < len(tied) {
			return tied[g.state.TiedHostCursor]
		}
		return nil
	}

	if len(g.state.Players) == 0 {
		return nil
	}
	return g.state.Players[g.state.HostIndex%len(g.state.Players)]
}

// tiedPlayers lists the sudden death contenders in their original join
// order.
func (g *Game) tiedPlayers() []*Player {
	tied := make([]*Player, 0, len(g.state.TiedIDs))
	for _, p := range g.state.Players {
		if g.state.TiedIDs[p.ID] {
			tied = append(tied, p)
		}
	}
	return tied
}

// guessablePlayers is the roster minus the acting host: the players whose
// answers are on the table.
func (g *Game) guessablePlayers() []*Player {
	host := g.currentHost()
	players := make([]*Player, 0, len(g.state.Players))
	for _, p := range g.state.Players {
		if host != nil && p.ID == host.ID {
			continue
		}
		players = append(players, p)
	}
	return players
}

// scoreboard is the roster sorted by score descending, join order as the
// tie-break for stable display.
func (g *Game) scoreboard() []*Player {
	board := make([]*Player, len(g.state.Players))
	copy(board, g.state.Players)
	sort.SliceStable(board, func(i, j int) bool {
		if board[i].Score != board[j].Score {
			return board[i].Score > board[j].Score
		}
		return board[i].JoinOrder < board[j].JoinOrder
	})
	return board
}

// ---- broadcast helpers ----

func (g *Game) broadcast(msg any) {
	for client := range g.clients {
		g.sendTo(client, msg)
	}
}

// sendTo drops slow clients rather than blocking the orchestrator.
func (g *Game) sendTo(c *Client, msg any) {
	select {
	case c.send <- msg:
	default:
		if _, ok := g.clients[c]; ok {
			delete(g.clients, c)
			close(c.send)
			g.clientGone(c)
		}
	}
}

func (g *Game) sendToPlayer(playerID string, msg any) {
	for client := range g.clients {
		if client.playerID == playerID {
			g.sendTo(client, msg)
		}
	}
}

func (g *Game) sendToHost(msg any) {
	host := g.currentHost()
	if host == nil {
		return
	}
	g.sendToPlayer(host.ID, msg)
}

func (g *Game) sendToDisplay(msg any) {
	for client := range g.clients {
		if client.role == roleDisplay {
			g.sendTo(client, msg)
		}
	}
}

// ---- websocket plumbing ----

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func serveWS(g *Game) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			g.log.Debug().Err(err).Msg("websocket upgrade failed")
			return
		}

		client := &Client{
			conn: conn,
			send: make(chan any, 32),
		}

		g.register <- client

		go client.writePump()
		client.readPump(g)
	}
}

func (c *Client) readPump(g *Game) {
	defer func() {
		g.unregister <- c
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		g.commands <- command{
			client: c,
			msg:    msg,
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
