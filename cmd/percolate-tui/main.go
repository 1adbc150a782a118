package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yshklarov/percolator/internal/config"
	"github.com/yshklarov/percolator/internal/session"
	"github.com/yshklarov/percolator/internal/tui"
)

func main() {
	fs := flag.NewFlagSet("percolate-tui", flag.ExitOnError)
	cfg, _, err := config.Parse(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	eng, err := cfg.NewEngine()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer eng.Close()

	sess := session.New(eng, cfg.SessionOptions())
	sess.Start()

	p := tea.NewProgram(tui.NewModel(eng, sess), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
