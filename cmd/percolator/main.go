//go:build ebiten

package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"github.com/yshklarov/percolator/internal/app"
	"github.com/yshklarov/percolator/internal/config"
	"github.com/yshklarov/percolator/internal/session"

	"github.com/hajimehoshi/ebiten/v2"
)

func main() {
	fs := flag.NewFlagSet("percolator", flag.ExitOnError)
	side := fs.Int("view", 800, "side of the lattice view in pixels")
	hudWidth := fs.Int("hud-width", 260, "width of the control panel in pixels")
	cfg, _, err := config.Parse(fs, os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	eng, err := cfg.NewEngine()
	if err != nil {
		log.Fatal(err)
	}
	defer eng.Close()

	sess := session.New(eng, cfg.SessionOptions())
	sess.Start()

	game := app.New(eng, sess, *side, *hudWidth)

	ebiten.SetWindowTitle("percolator")
	ebiten.SetWindowSize(*side+*hudWidth, *side)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(game); err != nil && !errors.Is(err, ebiten.Termination) {
		log.Fatal(err)
	}
}
