// Package table implements the hold'em game engine: per-table match
// lifecycle, betting legality, pot settlement and the registry that
// routes commands to tables. Each table is a sequential actor; all
// mutations of one table's state happen on its own worker goroutine.
package table

import (
	rand "math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/Rekiiel/Poker/internal/deck"
	"github.com/Rekiiel/Poker/internal/evaluator"
	"github.com/Rekiiel/Poker/internal/randutil"
)

// Phase is the stage of the current hand
type Phase int

const (
	Waiting Phase = iota
	PreFlop
	Flop
	Turn
	River
	Settling
)

func (p Phase) String() string {
	return [...]string{"waiting", "preflop", "flop", "turn", "river", "settling"}[p]
}

// Config holds the per-table match parameters
type Config struct {
	MaxPlayers    int
	SmallBlind    int
	BigBlind      int
	StartChips    int
	NextHandDelay time.Duration
}

// DefaultConfig returns the stakes every table runs unless configured
func DefaultConfig() Config {
	return Config{
		MaxPlayers:    6,
		SmallBlind:    10,
		BigBlind:      20,
		StartChips:    1000,
		NextHandDelay: 3 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = def.MaxPlayers
	}
	if c.SmallBlind <= 0 {
		c.SmallBlind = def.SmallBlind
	}
	if c.BigBlind <= 0 {
		c.BigBlind = def.BigBlind
	}
	if c.StartChips <= 0 {
		c.StartChips = def.StartChips
	}
	return c
}

type task struct {
	fn   func()
	done chan struct{}
}

// Table owns one match end to end: roster, deck, pot, phases and the
// turn pointer. Commands are applied strictly one at a time.
type Table struct {
	id        string
	cfg       Config
	logger    *log.Logger
	clock     quartz.Clock
	publisher Publisher
	rng       *rand.Rand
	onEmpty   func(tableID string)

	players      []*Player // seat order
	deadBets     []int     // hand contributions of players who left mid-hand
	phase        Phase
	pot          int
	currentBet   int
	community    []deck.Card
	dealerIdx    int
	bigBlindIdx  int
	deck         *deck.Deck
	turn         *TurnManager

	tasks chan task
	done  chan struct{}
}

// New creates a table. onEmpty is invoked (on the table's own
// goroutine) when the last seat empties, so the owner can tear the
// table down.
func New(id string, cfg Config, pub Publisher, clock quartz.Clock, rng *rand.Rand, logger *log.Logger, onEmpty func(string)) *Table {
	if clock == nil {
		clock = quartz.NewReal()
	}
	if rng == nil {
		rng = randutil.New(time.Now().UnixNano())
	}
	return &Table{
		id:        id,
		cfg:       cfg.withDefaults(),
		logger:    logger.WithPrefix("table").With("table", id),
		clock:     clock,
		publisher: pub,
		rng:       rng,
		onEmpty:   onEmpty,
		tasks:     make(chan task, 64),
		done:      make(chan struct{}),
	}
}

// ID returns the table identifier
func (t *Table) ID() string {
	return t.id
}

// Start launches the table's worker goroutine
func (t *Table) Start() {
	go t.run()
}

// Stop terminates the worker. Safe to call from within a command.
func (t *Table) Stop() {
	select {
	case <-t.done:
	default:
		close(t.done)
	}
}

func (t *Table) run() {
	for {
		select {
		case task := <-t.tasks:
			task.fn()
			if task.done != nil {
				close(task.done)
			}
		case <-t.done:
			return
		}
	}
}

// apply runs fn on the table goroutine and waits for it to finish
func (t *Table) apply(fn func()) {
	done := make(chan struct{})
	select {
	case t.tasks <- task{fn: fn, done: done}:
	case <-t.done:
		return
	}
	select {
	case <-done:
	case <-t.done:
	}
}

// asyncApply queues fn without waiting, used by timer callbacks
func (t *Table) asyncApply(fn func()) {
	select {
	case t.tasks <- task{fn: fn}:
	case <-t.done:
	}
}

// Dispatch applies one inbound command. It blocks until the command
// has been fully processed; commands for the same table are strictly
// serialized.
func (t *Table) Dispatch(cmd Command) {
	t.apply(func() { t.handleCommand(cmd) })
}

// Seated reports whether a player currently holds a seat
func (t *Table) Seated(playerID string) bool {
	var seated bool
	t.apply(func() { seated = t.playerByID(playerID) != nil })
	return seated
}

// Summary snapshots the table for the lobby listing
func (t *Table) Summary() LobbyTable {
	var out LobbyTable
	t.apply(func() { out = t.summary() })
	return out
}

func (t *Table) handleCommand(cmd Command) {
	var err error
	switch cmd.Type {
	case CmdJoin:
		err = t.addPlayer(cmd.PlayerID)
	case CmdLeave:
		err = t.removePlayer(cmd.PlayerID, "leave")
	case CmdDisconnect:
		err = t.removePlayer(cmd.PlayerID, "disconnect")
	case CmdSetReady:
		err = t.setReady(cmd.PlayerID, cmd.Ready)
	case CmdAction:
		err = t.submitAction(cmd.PlayerID, cmd.Action, cmd.Amount)
	case CmdRanking:
		err = t.sendRanking(cmd.PlayerID)
	default:
		err = ErrUnknownAction
	}
	if err != nil {
		t.logger.Debug("command rejected", "player", cmd.PlayerID, "command", cmd.Type, "error", err)
		t.publisher.ToPlayer(t.id, cmd.PlayerID, Event{
			Type: EventActionError,
			Data: ActionError{Code: errorCode(err), Reason: err.Error()},
		})
	}
}

func (t *Table) addPlayer(id string) error {
	if t.playerByID(id) != nil {
		return ErrAlreadySeated
	}
	if len(t.players) >= t.cfg.MaxPlayers {
		return ErrTableFull
	}
	t.players = append(t.players, &Player{ID: id, Chips: t.cfg.StartChips})
	t.logger.Info("player joined", "player", id, "seats", len(t.players))
	t.broadcastRoster()
	t.broadcastState()
	return nil
}

// removePlayer shares one code path for voluntary leave and
// disconnect: auto-fold if the player holds the turn, drop the seat,
// then settle the hand if at most one contender remains.
func (t *Table) removePlayer(id, reason string) error {
	idx := t.seatOf(id)
	if idx < 0 {
		return ErrPlayerNotAtTable
	}
	p := t.players[idx]
	inProgress := t.handInProgress()

	if inProgress && p.InHand {
		p.InHand = false // folds; their chips stay in the pot
		if t.turn != nil && t.turn.Current() == p {
			t.turn.Advance()
		}
	}
	if inProgress && p.HandBet > 0 {
		// Keep the departed contribution in the pot layering so a later
		// showdown still pays out the full pot
		t.deadBets = append(t.deadBets, p.HandBet)
	}
	if t.turn != nil {
		t.turn.Remove(p)
	}
	t.players = append(t.players[:idx], t.players[idx+1:]...)
	if idx < t.dealerIdx {
		t.dealerIdx--
	}
	if t.dealerIdx >= len(t.players) {
		t.dealerIdx = 0
	}
	if idx < t.bigBlindIdx {
		t.bigBlindIdx--
	}
	if t.bigBlindIdx >= len(t.players) {
		t.bigBlindIdx = 0
	}
	t.logger.Info("player removed", "player", id, "reason", reason, "seats", len(t.players))

	if len(t.players) == 0 {
		t.resetHandState()
		t.phase = Waiting
		if t.onEmpty != nil {
			t.onEmpty(t.id)
		}
		return nil
	}

	if inProgress {
		remaining := t.inHandPlayers()
		switch {
		case len(remaining) == 1:
			t.endHandDefault(remaining[0])
		case len(remaining) == 0:
			t.resetHandState()
			t.phase = Waiting
			t.broadcastState()
		default:
			if t.turn != nil && t.turn.RoundComplete(t.currentBet) {
				t.advancePhase()
			} else {
				t.broadcastState()
			}
		}
	} else {
		t.broadcastState()
	}
	t.broadcastRoster()
	return nil
}

func (t *Table) setReady(id string, ready bool) error {
	p := t.playerByID(id)
	if p == nil {
		return ErrPlayerNotAtTable
	}
	p.Ready = ready
	t.logger.Debug("ready changed", "player", id, "ready", ready)
	if t.phase == Waiting && ready && t.readyToStart() {
		return t.startHand()
	}
	t.broadcastState()
	return nil
}

// readyToStart requires every chip-holding player to be ready, with at
// least two of them. Busted players keep their seat but don't block.
func (t *Table) readyToStart() bool {
	funded, ready := 0, 0
	for _, p := range t.players {
		if p.Chips > 0 {
			funded++
			if p.Ready {
				ready++
			}
		}
	}
	return funded >= 2 && ready == funded
}

func (t *Table) startHand() error {
	funded := 0
	for _, p := range t.players {
		if p.Chips > 0 {
			funded++
		}
	}
	if funded < 2 {
		return ErrNotEnoughPlayers
	}

	t.phase = PreFlop
	t.pot = 0
	t.currentBet = 0
	t.deadBets = nil
	t.community = nil
	t.deck = deck.NewShuffled(t.rng)
	for _, p := range t.players {
		p.RoundBet = 0
		p.HandBet = 0
		p.HoleCards = nil
		p.InHand = p.Chips > 0
	}
	if !t.players[t.dealerIdx].InHand {
		t.dealerIdx = t.nextInHand(t.dealerIdx)
	}

	for _, p := range t.players {
		if !p.InHand {
			continue
		}
		cards, err := t.deck.Draw(2)
		if err != nil {
			t.abortHand(err)
			return nil
		}
		p.HoleCards = cards
		t.publisher.ToPlayer(t.id, p.ID, Event{Type: EventHoleCards, Data: HoleCardsDealt{Cards: cards}})
		t.sendRankingTo(p)
	}

	sb := t.nextInHand(t.dealerIdx)
	bb := t.nextInHand(sb)
	t.postBlind(t.players[sb], t.cfg.SmallBlind)
	posted := t.postBlind(t.players[bb], t.cfg.BigBlind)
	t.currentBet = posted
	t.bigBlindIdx = bb

	order := t.inHandPlayers()
	start := orderIndex(order, t.players[t.nextInHand(bb)])
	t.turn = NewTurnManager(order, start)

	t.logger.Info("hand started",
		"players", len(order),
		"dealer", t.players[t.dealerIdx].ID,
		"smallBlind", t.players[sb].ID,
		"bigBlind", t.players[bb].ID,
		"pot", t.pot)
	t.broadcastRoster()
	t.broadcastState()
	return nil
}

// postBlind commits a forced blind, capped at the player's stack. An
// all-in blind is legal.
func (t *Table) postBlind(p *Player, amount int) int {
	if amount > p.Chips {
		amount = p.Chips
	}
	t.commit(p, amount)
	return amount
}

func (t *Table) commit(p *Player, amount int) {
	p.Chips -= amount
	p.RoundBet += amount
	p.HandBet += amount
	t.pot += amount
}

func (t *Table) submitAction(id string, action ActionType, amount int) error {
	if !t.handInProgress() || t.turn == nil {
		return ErrNotYourTurn
	}
	p := t.playerByID(id)
	if p == nil {
		return ErrPlayerNotAtTable
	}
	if !p.InHand {
		return ErrPlayerNotInHand
	}
	if cur := t.turn.Current(); cur == nil || cur != p {
		return ErrNotYourTurn
	}

	need := t.currentBet - p.RoundBet
	switch action {
	case ActionCheck:
		if need != 0 {
			return ErrBelowMinimumBet
		}
	case ActionBet, ActionRaise:
		if amount < need {
			return ErrBelowMinimumBet
		}
		if amount > p.Chips {
			return ErrAboveMaximumBet
		}
		t.commit(p, amount)
		t.currentBet = p.RoundBet
		t.turn.MarkAggressor(p)
	case ActionCall:
		if need > p.Chips {
			return ErrInsufficientFunds
		}
		t.commit(p, need)
	case ActionAllIn:
		t.commit(p, p.Chips)
		if p.RoundBet > t.currentBet {
			t.currentBet = p.RoundBet
			t.turn.MarkAggressor(p)
		}
	case ActionFold:
		p.InHand = false
		if remaining := t.inHandPlayers(); len(remaining) == 1 {
			t.endHandDefault(remaining[0])
			return nil
		}
	default:
		return ErrUnknownAction
	}

	t.logger.Debug("action", "player", id, "action", action, "amount", amount, "pot", t.pot, "currentBet", t.currentBet)

	if next := t.turn.Advance(); next == nil {
		// Nobody left who can act; run the board out
		t.advancePhase()
		return nil
	}
	if t.turn.RoundComplete(t.currentBet) {
		t.advancePhase()
	} else {
		t.broadcastState()
	}
	return nil
}

// advancePhase reveals the next street and opens a new betting round.
// Streets where at most one player can still act (everyone else
// all-in) are run out back to back until showdown.
func (t *Table) advancePhase() {
	for {
		remaining := t.inHandPlayers()
		if len(remaining) <= 1 {
			if len(remaining) == 1 {
				t.endHandDefault(remaining[0])
			} else {
				t.resetHandState()
				t.phase = Waiting
				t.broadcastState()
			}
			return
		}
		if t.phase == River {
			t.showdown()
			return
		}

		reveal := 1
		if t.phase == PreFlop {
			reveal = 3
		}
		cards, err := t.deck.Draw(reveal)
		if err != nil {
			t.abortHand(err)
			return
		}
		t.community = append(t.community, cards...)
		t.phase++
		t.currentBet = 0
		for _, p := range t.players {
			p.RoundBet = 0
		}
		for _, p := range remaining {
			t.sendRankingTo(p)
		}
		t.logger.Info("phase advanced", "phase", t.phase, "community", len(t.community), "pot", t.pot)

		actors := 0
		for _, p := range remaining {
			if p.CanAct() {
				actors++
			}
		}
		if actors <= 1 {
			// No contested betting possible on this street
			t.turn = nil
			t.broadcastState()
			continue
		}

		order := t.inHandPlayers()
		start := orderIndex(order, t.players[t.nextInHand(t.dealerIdx)])
		t.turn = NewTurnManager(order, start)
		t.broadcastState()
		return
	}
}

// showdown evaluates every remaining hand against the board, settles
// the layered pots (splitting exact ties, remainder to the earliest
// seat after the dealer) and publishes the result.
func (t *Table) showdown() {
	t.phase = Settling
	contenders := t.inHandPlayers()

	strengths := make(map[*Player]evaluator.Strength, len(contenders))
	revealed := make([]RevealedHand, 0, len(contenders))
	for _, p := range contenders {
		cards := make([]deck.Card, 0, len(p.HoleCards)+len(t.community))
		cards = append(cards, p.HoleCards...)
		cards = append(cards, t.community...)
		s := evaluator.Evaluate(cards)
		strengths[p] = s
		revealed = append(revealed, RevealedHand{
			PlayerID:     p.ID,
			HoleCards:    p.HoleCards,
			CategoryName: s.Category.String(),
			WinningCards: s.Best,
		})
	}

	payouts := make(map[*Player]int)
	for _, share := range buildPots(t.players, t.deadBets) {
		eligible := share.Eligible
		if len(eligible) == 0 {
			// Overcontribution from players who later folded
			eligible = contenders
		}
		winners := t.bestHands(eligible, strengths)
		split := share.Amount / len(winners)
		rem := share.Amount % len(winners)
		for i, w := range winners {
			amt := split
			if i < rem {
				amt++
			}
			w.Chips += amt
			payouts[w] += amt
		}
	}

	result := HandResult{RevealedHands: revealed}
	for _, p := range t.players {
		if amt, ok := payouts[p]; ok {
			result.Payouts = append(result.Payouts, Payout{PlayerID: p.ID, Amount: amt})
			if amt > result.PayoutTotal {
				result.PayoutTotal = amt
				result.WinnerID = p.ID
			}
		}
	}

	t.logger.Info("showdown", "winner", result.WinnerID, "payout", result.PayoutTotal, "pot", t.pot)
	t.publisher.Broadcast(t.id, Event{Type: EventHandResult, Data: result})
	t.finishHand()
}

// bestHands returns every eligible player tied for the strongest hand,
// ordered by seat distance after the dealer so odd chips land on the
// earliest seat.
func (t *Table) bestHands(eligible []*Player, strengths map[*Player]evaluator.Strength) []*Player {
	var winners []*Player
	for _, p := range eligible {
		if len(winners) == 0 {
			winners = []*Player{p}
			continue
		}
		cmp := strengths[p].Compare(strengths[winners[0]])
		if cmp > 0 {
			winners = []*Player{p}
		} else if cmp == 0 {
			winners = append(winners, p)
		}
	}
	if len(winners) > 1 {
		dist := func(p *Player) int {
			idx := t.seatOf(p.ID)
			return (idx - t.dealerIdx - 1 + 2*len(t.players)) % len(t.players)
		}
		for i := 1; i < len(winners); i++ {
			for j := i; j > 0 && dist(winners[j]) < dist(winners[j-1]); j-- {
				winners[j], winners[j-1] = winners[j-1], winners[j]
			}
		}
	}
	return winners
}

// endHandDefault awards the whole pot without a showdown: everyone
// else folded or left.
func (t *Table) endHandDefault(winner *Player) {
	t.phase = Settling
	payout := t.pot
	winner.Chips += payout

	result := HandResult{
		WinnerID:    winner.ID,
		PayoutTotal: payout,
		Payouts:     []Payout{{PlayerID: winner.ID, Amount: payout}},
	}
	if len(winner.HoleCards) > 0 {
		cards := make([]deck.Card, 0, len(winner.HoleCards)+len(t.community))
		cards = append(cards, winner.HoleCards...)
		cards = append(cards, t.community...)
		s := evaluator.Evaluate(cards)
		result.RevealedHands = []RevealedHand{{
			PlayerID:     winner.ID,
			HoleCards:    winner.HoleCards,
			CategoryName: s.Category.String(),
			WinningCards: s.Best,
		}}
	}

	t.logger.Info("hand won by default", "winner", winner.ID, "payout", payout)
	t.publisher.Broadcast(t.id, Event{Type: EventHandResult, Data: result})
	t.finishHand()
}

// finishHand returns the table to Waiting, advances the button and
// schedules the next hand if enough ready players still hold chips.
func (t *Table) finishHand() {
	t.resetHandState()
	t.phase = Waiting
	if len(t.players) > 0 {
		t.dealerIdx = (t.dealerIdx + 1) % len(t.players)
	}
	t.broadcastState()
	t.broadcastRoster()
	t.scheduleNextHand()
}

func (t *Table) resetHandState() {
	t.pot = 0
	t.currentBet = 0
	t.community = nil
	t.deck = nil
	t.turn = nil
	t.deadBets = nil
	for _, p := range t.players {
		p.InHand = false
		p.RoundBet = 0
		p.HandBet = 0
		p.HoleCards = nil
	}
}

func (t *Table) scheduleNextHand() {
	if t.cfg.NextHandDelay <= 0 {
		return
	}
	t.clock.AfterFunc(t.cfg.NextHandDelay, func() {
		t.asyncApply(func() {
			if t.phase == Waiting && t.readyToStart() {
				if err := t.startHand(); err != nil {
					t.logger.Warn("auto start skipped", "error", err)
				}
			}
		})
	})
}

// abortHand unwinds contributions after an internal invariant
// violation such as an exhausted deck. This is a logic defect, not a
// recoverable game state; the hand is voided.
func (t *Table) abortHand(err error) {
	t.logger.Error("internal invariant violated, voiding hand", "error", err)
	for _, p := range t.players {
		p.Chips += p.HandBet
	}
	t.pot = 0
	t.finishHand()
}

func (t *Table) sendRanking(id string) error {
	p := t.playerByID(id)
	if p == nil {
		return ErrPlayerNotAtTable
	}
	t.sendRankingTo(p)
	return nil
}

func (t *Table) sendRankingTo(p *Player) {
	cards := make([]deck.Card, 0, len(p.HoleCards)+len(t.community))
	cards = append(cards, p.HoleCards...)
	cards = append(cards, t.community...)
	s := evaluator.Evaluate(cards)
	t.publisher.ToPlayer(t.id, p.ID, Event{
		Type: EventHandRanking,
		Data: HandRankingUpdate{CategoryName: s.Category.String(), WinningCards: s.Best},
	})
}

func (t *Table) handInProgress() bool {
	return t.phase != Waiting
}

func (t *Table) playerByID(id string) *Player {
	for _, p := range t.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (t *Table) seatOf(id string) int {
	for i, p := range t.players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (t *Table) inHandPlayers() []*Player {
	out := make([]*Player, 0, len(t.players))
	for _, p := range t.players {
		if p.InHand {
			out = append(out, p)
		}
	}
	return out
}

// nextInHand returns the index of the first in-hand seat after i
func (t *Table) nextInHand(i int) int {
	n := len(t.players)
	for k := 1; k <= n; k++ {
		j := (i + k) % n
		if t.players[j].InHand {
			return j
		}
	}
	return i
}

func orderIndex(order []*Player, p *Player) int {
	for i, o := range order {
		if o == p {
			return i
		}
	}
	return 0
}

func (t *Table) broadcastState() {
	snap := GameStateSnapshot{
		TableID:        t.id,
		Pot:            t.pot,
		CurrentBet:     t.currentBet,
		Phase:          t.phase.String(),
		CommunityCards: t.community,
		DealerSeat:     t.dealerIdx,
		BigBlindSeat:   t.bigBlindIdx,
	}
	if t.turn != nil {
		if cur := t.turn.Current(); cur != nil {
			snap.CurrentActor = cur.ID
		}
	}
	for _, p := range t.players {
		snap.Players = append(snap.Players, SnapshotPlayer{
			ID:                p.ID,
			Stack:             p.Chips,
			InHand:            p.InHand,
			RoundContribution: p.RoundBet,
			Ready:             p.Ready,
		})
	}
	t.publisher.Broadcast(t.id, Event{Type: EventGameState, Data: snap})
}

func (t *Table) broadcastRoster() {
	t.publisher.Broadcast(t.id, Event{Type: EventTableRoster, Data: TableRosterUpdate{
		TableID:         t.id,
		Players:         t.rosterPlayers(),
		MatchInProgress: t.handInProgress(),
	}})
}

func (t *Table) rosterPlayers() []RosterPlayer {
	out := make([]RosterPlayer, 0, len(t.players))
	for _, p := range t.players {
		out = append(out, RosterPlayer{ID: p.ID, Stack: p.Chips})
	}
	return out
}

func (t *Table) summary() LobbyTable {
	return LobbyTable{
		TableID:         t.id,
		Players:         t.rosterPlayers(),
		MatchInProgress: t.handInProgress(),
	}
}
