// Package tui renders the terminal frontend. The model is entirely
// event-driven: every piece of game state on screen came out of a
// server message, so the display can never disagree with the engine.
package tui

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/Rekiiel/Poker/internal/client"
	"github.com/Rekiiel/Poker/internal/deck"
	"github.com/Rekiiel/Poker/internal/server"
	"github.com/Rekiiel/Poker/internal/table"
)

// serverMsg wraps an inbound server message for the update loop
type serverMsg struct{ msg *server.Message }

// connClosedMsg signals that the server connection dropped
type connClosedMsg struct{}

// Model is the Bubble Tea model for the poker client
type Model struct {
	client     *client.Client
	logger     *log.Logger
	playerName string

	// UI components
	logViewport viewport.Model
	actionInput textinput.Model

	// State mirrored from server events
	tableID    string
	pot        int
	currentBet int
	phase      string
	community  []deck.Card
	holeCards  []deck.Card
	actor      string
	players    []table.SnapshotPlayer
	lobby      []table.LobbyTable

	gameLog     []string
	quitting    bool
	width       int
	height      int
	initialized bool
}

// NewModel creates the client model
func NewModel(c *client.Client, playerName string, logger *log.Logger) *Model {
	vp := viewport.New(10, 5)
	vp.SetContent("")

	ti := textinput.New()
	ti.Placeholder = "/join <table>, ready, check, call, bet 50, fold..."
	ti.Focus()
	ti.CharLimit = 100
	ti.Width = 100
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	ti.Prompt = "> "

	return &Model{
		client:      c,
		logger:      logger.WithPrefix("tui"),
		playerName:  playerName,
		logViewport: vp,
		actionInput: ti,
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForMessage())
}

// waitForMessage returns a command that delivers the next server message
func (m *Model) waitForMessage() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.client.Receive()
		if !ok {
			return connClosedMsg{}
		}
		return serverMsg{msg: msg}
	}
}

// Update handles messages in the TUI
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case connClosedMsg:
		m.addLog(ErrorStyle.Render("Connection to server lost"))
		m.quitting = true
		return m, tea.Sequence(tea.ClearScreen, tea.Quit)

	case serverMsg:
		m.handleServerMessage(msg.msg)
		cmds = append(cmds, m.waitForMessage())

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Sequence(tea.ClearScreen, tea.Quit)
		case "enter":
			input := strings.TrimSpace(m.actionInput.Value())
			m.actionInput.SetValue("")
			if cmd := m.processInput(input); cmd != nil {
				return m, cmd
			}
		case "pgup":
			m.logViewport.HalfPageUp()
		case "pgdown":
			m.logViewport.HalfPageDown()
		}
	}

	var cmd tea.Cmd
	m.actionInput, cmd = m.actionInput.Update(msg)
	cmds = append(cmds, cmd)
	m.logViewport, cmd = m.logViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleServerMessage folds one server event into the display state
func (m *Model) handleServerMessage(msg *server.Message) {
	switch msg.Type {
	case server.MessageTypeWelcome:
		m.addLog(SuccessStyle.Render("Connected as " + m.playerName))

	case server.MessageTypeError:
		var data server.ErrorData
		if json.Unmarshal(msg.Data, &data) == nil {
			m.addLog(ErrorStyle.Render("Error: " + data.Message))
		}

	case server.MessageType(table.EventTableRoster):
		var data table.TableRosterUpdate
		if json.Unmarshal(msg.Data, &data) == nil {
			names := make([]string, 0, len(data.Players))
			for _, p := range data.Players {
				names = append(names, fmt.Sprintf("%s ($%d)", p.ID, p.Stack))
			}
			m.addLog(InfoStyle.Render("Seated: " + strings.Join(names, ", ")))
		}

	case server.MessageType(table.EventHoleCards):
		var data table.HoleCardsDealt
		if json.Unmarshal(msg.Data, &data) == nil {
			m.holeCards = data.Cards
			m.addLog(HandInfoStyle.Render("Your hand: ") + m.formatCards(data.Cards))
		}

	case server.MessageType(table.EventGameState):
		var data table.GameStateSnapshot
		if json.Unmarshal(msg.Data, &data) == nil {
			m.applySnapshot(data)
		}

	case server.MessageType(table.EventHandRanking):
		var data table.HandRankingUpdate
		if json.Unmarshal(msg.Data, &data) == nil {
			m.addLog(HandInfoStyle.Render("Current best: "+data.CategoryName+" ") + m.formatCards(data.WinningCards))
		}

	case server.MessageType(table.EventHandResult):
		var data table.HandResult
		if json.Unmarshal(msg.Data, &data) == nil {
			m.logHandResult(data)
		}

	case server.MessageType(table.EventLobby):
		var data table.LobbyUpdate
		if json.Unmarshal(msg.Data, &data) == nil {
			m.lobby = data.Tables
		}

	default:
		m.logger.Debug("Unhandled message", "type", msg.Type)
	}
}

func (m *Model) applySnapshot(snap table.GameStateSnapshot) {
	phaseChanged := snap.Phase != m.phase
	m.tableID = snap.TableID
	m.pot = snap.Pot
	m.currentBet = snap.CurrentBet
	m.phase = snap.Phase
	m.community = snap.CommunityCards
	m.actor = snap.CurrentActor
	m.players = snap.Players

	if snap.Phase == "waiting" {
		m.holeCards = nil
	}
	if phaseChanged && len(snap.CommunityCards) > 0 {
		m.addLog(ActionsStyle.Render(strings.ToUpper(snap.Phase)+": ") + m.formatCards(snap.CommunityCards))
	}
	if snap.CurrentActor == m.playerName {
		m.addLog(WarningStyle.Render(fmt.Sprintf("Your turn. Pot $%d, to call $%d", snap.Pot, m.amountToCall(snap))))
	}
}

func (m *Model) amountToCall(snap table.GameStateSnapshot) int {
	for _, p := range snap.Players {
		if p.ID == m.playerName {
			return snap.CurrentBet - p.RoundContribution
		}
	}
	return snap.CurrentBet
}

func (m *Model) logHandResult(result table.HandResult) {
	for _, reveal := range result.RevealedHands {
		m.addLog(fmt.Sprintf("%s shows %s (%s)",
			reveal.PlayerID, m.formatCards(reveal.HoleCards), reveal.CategoryName))
	}
	for _, payout := range result.Payouts {
		m.addLog(SuccessStyle.Render(fmt.Sprintf("%s wins $%d", payout.PlayerID, payout.Amount)))
	}
	if len(result.Payouts) == 0 && result.WinnerID != "" {
		m.addLog(SuccessStyle.Render(fmt.Sprintf("%s wins $%d", result.WinnerID, result.PayoutTotal)))
	}
}

// processInput parses and executes a typed command
func (m *Model) processInput(input string) tea.Cmd {
	if input == "" {
		return nil
	}
	parts := strings.Fields(strings.ToLower(input))
	cmd, args := parts[0], parts[1:]

	var err error
	switch cmd {
	case "/quit", "quit":
		m.quitting = true
		return tea.Sequence(tea.ClearScreen, tea.Quit)
	case "/join", "join":
		if len(args) != 1 {
			m.addLog(ErrorStyle.Render("Usage: /join <table>"))
			return nil
		}
		err = m.client.JoinTable(args[0])
	case "/leave", "leave":
		err = m.client.LeaveTable()
	case "ready":
		err = m.client.SetReady(true)
	case "unready":
		err = m.client.SetReady(false)
	case "check", "call", "fold", "allin":
		err = m.client.Action(cmd, 0)
	case "bet", "raise":
		if len(args) != 1 {
			m.addLog(ErrorStyle.Render("Usage: " + cmd + " <amount>"))
			return nil
		}
		amount, convErr := strconv.Atoi(args[0])
		if convErr != nil || amount <= 0 {
			m.addLog(ErrorStyle.Render("Amount must be a positive number"))
			return nil
		}
		err = m.client.Action(cmd, amount)
	case "rank":
		err = m.client.RequestRanking()
	default:
		m.addLog(ErrorStyle.Render("Unknown command: " + cmd))
		return nil
	}

	if err != nil {
		m.addLog(ErrorStyle.Render("Send failed: " + err.Error()))
	}
	return nil
}

// View renders the TUI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	actionContent := m.renderActionPane()
	actionHeight := lipgloss.Height(actionContent)
	actionStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#04B575")).
		Width(max(m.width-2, 1)).
		Height(max(actionHeight-2, 1))
	actionPane := actionStyle.Render(actionContent)

	sidebarWidth := 30
	sidebarHeight := max(m.height-actionHeight-4, 1)
	sidebarStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(sidebarWidth).
		Height(sidebarHeight)
	sidebarPane := sidebarStyle.Render(m.renderSidebarPane())

	logWidth := max(m.width-sidebarWidth-4, 1)
	logHeight := max(m.height-actionHeight-4, 1)
	m.logViewport.Width = logWidth
	m.logViewport.Height = logHeight
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))
	if !m.initialized && logWidth > 1 && logHeight > 1 {
		m.logViewport.GotoBottom()
		m.initialized = true
	}

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(logWidth).
		Height(logHeight)
	logPane := logStyle.Render(m.logViewport.View())

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, logPane, sidebarPane)
	return lipgloss.JoinVertical(lipgloss.Top, topRow, actionPane)
}

func (m *Model) renderSidebarPane() string {
	var content strings.Builder

	if m.tableID == "" {
		content.WriteString(InfoStyle.Render("Not seated"))
		content.WriteString("\n\n")
		if len(m.lobby) > 0 {
			content.WriteString(InfoStyle.Render("Open tables:"))
			content.WriteString("\n")
			for _, t := range m.lobby {
				content.WriteString(fmt.Sprintf("  %s (%d players)\n", t.TableID, len(t.Players)))
			}
		}
		return content.String()
	}

	content.WriteString(WarningStyle.Render(fmt.Sprintf("Table %s", m.tableID)))
	content.WriteString("\n")
	content.WriteString(WarningStyle.Render(fmt.Sprintf("Pot: $%d", m.pot)))
	if m.currentBet > 0 {
		content.WriteString(WarningStyle.Render(fmt.Sprintf(" | Bet: $%d", m.currentBet)))
	}
	content.WriteString("\n")
	content.WriteString(InfoStyle.Render("Phase: " + m.phase))
	content.WriteString("\n\n")

	for _, p := range m.players {
		marker := "  "
		if p.ID == m.actor {
			marker = "→ "
		}
		line := fmt.Sprintf("%s%s: $%d", marker, p.ID, p.Stack)
		if !p.InHand && m.phase != "waiting" {
			line += " (folded)"
		} else if p.RoundContribution > 0 {
			line += fmt.Sprintf(" [$%d]", p.RoundContribution)
		}
		if m.phase == "waiting" && p.Ready {
			line += " ✓"
		}
		content.WriteString(line)
		content.WriteString("\n")
	}

	return content.String()
}

func (m *Model) renderActionPane() string {
	var content strings.Builder

	if len(m.holeCards) > 0 {
		content.WriteString(HandInfoStyle.Render("Hand: ") + m.formatCards(m.holeCards))
		if len(m.community) > 0 {
			content.WriteString("   " + HandInfoStyle.Render("Board: ") + m.formatCards(m.community))
		}
		content.WriteString("\n")
	}

	content.WriteString(m.actionInput.View())
	content.WriteString("\n")
	content.WriteString(InfoStyle.Render("PgUp/PgDn to scroll log • Enter to submit • Ctrl+C to quit"))

	return content.String()
}

// formatCards formats cards with colors
func (m *Model) formatCards(cards []deck.Card) string {
	if len(cards) == 0 {
		return ""
	}

	var formatted []string
	for _, card := range cards {
		if card.Suit.IsRed() {
			formatted = append(formatted, RedCardStyle.Render(card.String()))
		} else {
			formatted = append(formatted, BlackCardStyle.Render(card.String()))
		}
	}

	return "[" + strings.Join(formatted, " ") + "]"
}

func (m *Model) addLog(entry string) {
	m.gameLog = append(m.gameLog, entry)
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))
	if m.logViewport.Height > 0 && m.logViewport.Width > 0 {
		m.logViewport.GotoBottom()
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
