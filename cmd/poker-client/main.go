package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/Rekiiel/Poker/internal/client"
	"github.com/Rekiiel/Poker/internal/tui"
)

var CLI struct {
	Server   string `short:"s" long:"server" default:"http://localhost:8080" help:"Server URL to connect to"`
	Player   string `short:"p" long:"player" help:"Player name"`
	Table    string `short:"t" long:"table" help:"Table to join on startup"`
	LogLevel string `short:"l" long:"log-level" default:"info" help:"Log level"`
	LogFile  string `long:"log-file" default:"poker-client.log" help:"Log file path"`
}

func main() {
	kctx := kong.Parse(&CLI)

	playerName := CLI.Player
	if playerName == "" {
		fmt.Print("Enter your player name: ")
		var input string
		_, _ = fmt.Scanln(&input)
		playerName = strings.TrimSpace(input)
		if playerName == "" {
			fmt.Println("Player name is required")
			kctx.Exit(1)
		}
	}

	// Log to a file so the TUI owns the terminal
	logFile, err := os.OpenFile(CLI.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		fmt.Printf("Failed to open log file: %v\n", err)
		kctx.Exit(1)
	}
	defer func() { _ = logFile.Close() }()

	logger := log.New(logFile)
	switch CLI.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	logger.Info("Starting Poker Client", "server", CLI.Server, "player", playerName)

	wsClient := client.NewClient(CLI.Server, logger)
	if err := wsClient.Connect(); err != nil {
		fmt.Printf("Failed to connect to server: %v\n", err)
		kctx.Exit(1)
	}
	defer func() { _ = wsClient.Disconnect() }()

	if err := wsClient.Hello(playerName); err != nil {
		fmt.Printf("Failed to introduce player: %v\n", err)
		kctx.Exit(1)
	}
	if CLI.Table != "" {
		if err := wsClient.JoinTable(CLI.Table); err != nil {
			fmt.Printf("Failed to join table: %v\n", err)
			kctx.Exit(1)
		}
	}

	model := tui.NewModel(wsClient, playerName, logger)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Printf("Error running TUI: %v\n", err)
		kctx.Exit(1)
	}
}
