//go:build ebiten

package app

import (
	"time"

	"github.com/yshklarov/percolator/internal/engine"
	"github.com/yshklarov/percolator/internal/lattice"
	"github.com/yshklarov/percolator/internal/render"
	"github.com/yshklarov/percolator/internal/session"
	"github.com/yshklarov/percolator/internal/ui"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// snapshotWait bounds how long a frame goes without a fresh lattice
// before Update blocks on the copy in progress.
const snapshotWait = 100 * time.Millisecond

// Game adapts an engine and its session to the ebiten.Game interface.
type Game struct {
	eng     *engine.Engine
	sess    *session.Session
	painter *render.GridPainter
	overlay *ui.Overlay
	hud     *ui.HUD

	snap     *engine.Snapshot
	side     int
	hudWidth int
}

// New constructs a Game drawing the lattice into a side x side square with
// the control panel to its right.
func New(eng *engine.Engine, sess *session.Session, side, hudWidth int) *Game {
	size := eng.Size()
	return &Game{
		eng:      eng,
		sess:     sess,
		painter:  render.NewGridPainter(size.W, size.H),
		overlay:  ui.NewOverlay(eng),
		hud:      ui.NewHUD(sess, hudWidth),
		side:     side,
		hudWidth: hudWidth,
	}
}

// Update handles input and picks up the latest lattice copy.
func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	g.handleKeys()
	g.overlay.Update()
	g.hud.Update(g.side)

	if s, ok := g.eng.Snapshot(snapshotWait); ok {
		g.snap = s
	}
	return nil
}

func (g *Game) handleKeys() {
	s := g.sess
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyG):
		s.Regenerate()
	case inpututil.IsKeyJustPressed(ebiten.KeyP):
		s.Percolate()
	case inpututil.IsKeyJustPressed(ebiten.KeyN):
		s.Step()
	case inpututil.IsKeyJustPressed(ebiten.KeyF):
		if g.eng.IsFlowing() {
			s.PauseFlow()
		} else {
			s.BeginFlow()
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyC):
		s.Clear()
	case inpututil.IsKeyJustPressed(ebiten.KeyM):
		if s.Mode() == session.ModeFlow {
			s.SetMode(session.ModeClusters)
		} else {
			s.SetMode(session.ModeFlow)
		}
		g.painter.Invalidate()
	case inpututil.IsKeyJustPressed(ebiten.KeyA):
		s.SetAutoPercolate(!s.AutoPercolate())
	case inpututil.IsKeyJustPressed(ebiten.KeyL):
		s.SetAutoFlow(!s.AutoFlow())
	case inpututil.IsKeyJustPressed(ebiten.KeyK):
		s.SetAutoFind(!s.AutoFind())
	case inpututil.IsKeyJustPressed(ebiten.KeyD):
		if g.eng.FlowDirection() == lattice.FlowTop {
			s.SetFlowDirection(lattice.FlowAllSides)
		} else {
			s.SetFlowDirection(lattice.FlowTop)
		}
	}
}

// Draw renders the most recent lattice copy, the overlay and the panel.
func (g *Game) Draw(screen *ebiten.Image) {
	if g.snap != nil {
		g.painter.Upload(g.snap, g.snap.Version, g.sess.Mode() == session.ModeClusters)
		g.painter.Blit(screen, g.side)
	}
	g.overlay.Draw(screen, g.side)
	g.hud.Draw(screen, g.side, g.side)
}

// Layout returns the logical screen size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.side + g.hudWidth, g.side
}
