//go:build ebiten

package ui

import (
	"image"
	"image/color"
	"math"
	"strconv"

	"github.com/yshklarov/percolator/internal/core"
	"github.com/yshklarov/percolator/internal/engine"
	"github.com/yshklarov/percolator/internal/session"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/basicfont"
)

var face = text.NewGoXFace(basicfont.Face7x13)

// hudControl is an adjustable numeric value backed by the session.
type hudControl struct {
	label     string
	step      float64
	min, max  float64
	precision int
	get       func(*session.Session) (float64, bool)
	set       func(*session.Session, float64)
}

var controls = []hudControl{
	{
		label: "Size", step: 10, min: 1, max: session.MaxSide,
		get: func(s *session.Session) (float64, bool) { return float64(s.Side()), true },
		set: func(s *session.Session, v float64) { s.SetSize(int(math.Round(v))) },
	},
	{
		label: "Probability", step: 0.01, min: 0, max: 1, precision: 2,
		get: func(s *session.Session) (float64, bool) { return s.Probability() },
		set: func(s *session.Session, v float64) { s.SetProbability(v) },
	},
	{
		label: "Flow speed", step: 10, min: engine.MinFlowSpeed, max: engine.MaxFlowSpeed,
		get: func(s *session.Session) (float64, bool) { return s.FlowSpeed(), true },
		set: func(s *session.Session, v float64) { s.SetFlowSpeed(v) },
	},
}

// HUD renders the control panel to the right of the lattice view.
type HUD struct {
	sess       *session.Session
	width      int
	panel      *ebiten.Image
	lastHeight int
	snapshot   core.ParameterSnapshot

	states       []hudControlState
	panelOffsetX int

	pixel *ebiten.Image
}

// NewHUD constructs a HUD for the session and panel width.
func NewHUD(sess *session.Session, width int) *HUD {
	if width < 0 {
		width = 0
	}
	h := &HUD{sess: sess, width: width}
	if width > 0 {
		h.pixel = ebiten.NewImage(1, 1)
		h.pixel.Fill(color.White)
	}
	h.states = make([]hudControlState, len(controls))
	for i := range controls {
		h.states[i].control = &controls[i]
	}
	h.layoutControls()
	return h
}

// Update refreshes the cached status from the session and handles clicks.
func (h *HUD) Update(panelOffsetX int) {
	if h == nil {
		return
	}
	h.panelOffsetX = panelOffsetX
	h.snapshot = h.sess.Status()
	for i := range h.states {
		st := &h.states[i]
		st.value, st.hasValue = st.control.get(h.sess)
	}
	h.handleInput()
}

// Draw paints the panel at offsetX with the given height.
func (h *HUD) Draw(screen *ebiten.Image, offsetX, height int) {
	if h == nil || h.width <= 0 || height <= 0 {
		return
	}
	if h.panel == nil || h.lastHeight != height {
		if h.panel != nil {
			h.panel.Deallocate()
		}
		h.panel = ebiten.NewImage(h.width, height)
		h.lastHeight = height
	}
	h.panel.Fill(color.RGBA{R: 16, G: 16, B: 20, A: 255})
	h.drawControls()
	h.drawStatus()
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(offsetX), 0)
	screen.DrawImage(h.panel, op)
}

func (h *HUD) handleInput() {
	if !inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		return
	}
	mx, my := ebiten.CursorPosition()
	if mx < h.panelOffsetX {
		return
	}
	px := mx - h.panelOffsetX
	for i := range h.states {
		st := &h.states[i]
		if !st.hasValue {
			continue
		}
		if pointInRect(px, my, st.minusRect) {
			h.adjust(st, -1)
			return
		}
		if pointInRect(px, my, st.plusRect) {
			h.adjust(st, 1)
			return
		}
	}
}

func (h *HUD) adjust(st *hudControlState, direction int) {
	target, ok := st.target(direction)
	if !ok {
		return
	}
	st.control.set(h.sess, target)
	st.value = target
}

func (h *HUD) drawControls() {
	drawText(h.panel, "Percolator", panelPadding, panelPadding, titleColor)
	for i := range h.states {
		st := &h.states[i]
		drawText(h.panel, st.control.label, panelPadding, st.top+textInset, labelColor)
		value, fg := "--", dimColor
		if st.hasValue {
			value, fg = strconv.FormatFloat(st.value, 'f', st.control.precision, 64), labelColor
		}
		w, _ := text.Measure(value, face, 0)
		drawText(h.panel, value, st.minusRect.Min.X-buttonGap-int(w), st.top+textInset, fg)

		_, minusOK := st.target(-1)
		_, plusOK := st.target(1)
		h.drawButton(st.minusRect, "-", st.hasValue && minusOK)
		h.drawButton(st.plusRect, "+", st.hasValue && plusOK)
	}
}

func (h *HUD) drawStatus() {
	y := controlsTop + len(h.states)*lineHeight + lineHeight/2
	for _, g := range h.snapshot.Groups {
		drawText(h.panel, g.Name, panelPadding, y, titleColor)
		y += statusLine
		for _, p := range g.Params {
			if p.Value == "" {
				continue
			}
			drawText(h.panel, p.Label+": "+p.Value, panelPadding+8, y, labelColor)
			y += statusLine
		}
		y += statusLine / 2
	}
}

func (h *HUD) drawButton(rect image.Rectangle, label string, enabled bool) {
	if h.pixel == nil {
		return
	}
	bg := color.RGBA{R: 54, G: 56, B: 64, A: 255}
	fg := color.RGBA{R: 230, G: 230, B: 240, A: 255}
	if !enabled {
		bg = color.RGBA{R: 32, G: 34, B: 40, A: 255}
		fg = dimColor
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(rect.Dx()), float64(rect.Dy()))
	op.GeoM.Translate(float64(rect.Min.X), float64(rect.Min.Y))
	op.ColorScale.ScaleWithColor(bg)
	h.panel.DrawImage(h.pixel, op)

	tw, th := text.Measure(label, face, 0)
	x := rect.Min.X + (rect.Dx()-int(tw))/2
	y := rect.Min.Y + (rect.Dy()-int(th))/2
	drawText(h.panel, label, x, y, fg)
}

func (h *HUD) layoutControls() {
	if h.width <= 0 {
		return
	}
	for i := range h.states {
		top := controlsTop + i*lineHeight
		buttonY := top + (lineHeight-buttonSize)/2
		plusRect := image.Rect(h.width-panelPadding-buttonSize, buttonY, h.width-panelPadding, buttonY+buttonSize)
		minusRect := image.Rect(plusRect.Min.X-buttonGap-buttonSize, buttonY, plusRect.Min.X-buttonGap, buttonY+buttonSize)
		h.states[i].top = top
		h.states[i].minusRect = minusRect
		h.states[i].plusRect = plusRect
	}
}

func drawText(dst *ebiten.Image, s string, x, y int, c color.Color) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(float64(x), float64(y))
	op.ColorScale.ScaleWithColor(c)
	text.Draw(dst, s, face, op)
}

func pointInRect(x, y int, rect image.Rectangle) bool {
	return x >= rect.Min.X && x < rect.Max.X && y >= rect.Min.Y && y < rect.Max.Y
}

type hudControlState struct {
	control  *hudControl
	value    float64
	hasValue bool

	top       int
	minusRect image.Rectangle
	plusRect  image.Rectangle
}

// target returns the value one step away, or false at a bound.
func (st *hudControlState) target(direction int) (float64, bool) {
	c := st.control
	v := st.value + float64(direction)*c.step
	if c.precision == 0 {
		v = math.Round(v)
	}
	v = min(max(v, c.min), c.max)
	if math.Abs(v-st.value) < 1e-9 {
		return v, false
	}
	return v, true
}

const (
	panelPadding = 12
	lineHeight   = 36
	buttonSize   = 24
	buttonGap    = 6
	controlsTop  = 40
	textInset    = 11
	statusLine   = 16
)

var (
	titleColor = color.RGBA{R: 200, G: 200, B: 210, A: 255}
	labelColor = color.RGBA{R: 220, G: 220, B: 230, A: 255}
	dimColor   = color.RGBA{R: 120, G: 120, B: 130, A: 255}
)
