package pip

import (
	"image"
	"image/color"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/openmeet/pip/internal/core"
	"github.com/openmeet/pip/internal/domain"
)

// Stage theme colors.
var (
	backgroundColor = color.RGBA{R: 0x0E, G: 0x0E, B: 0x10, A: 0xFF}
	pulseColor      = color.RGBA{R: 68, G: 165, B: 255, A: 0xFF}
	initialsColor   = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
)

// renderLoop produces one composited frame per tick. It runs on a plain
// repeating timer rather than a display-driven callback: display callbacks
// are throttled or suspended while the tab is backgrounded, and
// backgrounded is exactly the condition under which the session exists.
//
// The loop never mutates session lifecycle state; it only composites
// frames and reports focal-participant changes to the binder.
type renderLoop struct {
	surface  *Surface
	binder   *audioLevelBinder
	getState core.GetState
	interval time.Duration

	mu      sync.Mutex
	focalID domain.ParticipantID
	face    font.Face

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func newRenderLoop(surface *Surface, binder *audioLevelBinder, getState core.GetState, fps int) *renderLoop {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &renderLoop{
		surface:  surface,
		binder:   binder,
		getState: getState,
		interval: time.Second / time.Duration(fps),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (l *renderLoop) start() {
	go l.run()
}

func (l *renderLoop) run() {
	defer close(l.done)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.tick()
		}
	}
}

// halt stops the loop and waits for any in-flight tick, so no frame is
// painted after it returns.
func (l *renderLoop) halt() {
	l.stopOnce.Do(func() { close(l.stop) })
	<-l.done
}

func (l *renderLoop) focal() domain.ParticipantID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.focalID
}

func (l *renderLoop) setFocal(id domain.ParticipantID) {
	l.mu.Lock()
	l.focalID = id
	l.mu.Unlock()
}

// tick paints exactly one frame. Drawing trouble (a source that is not yet
// decodable) degrades to the avatar fallback for this tick, never fails
// the loop.
func (l *renderLoop) tick() {
	canvas := l.surface.Canvas()
	if canvas == nil {
		return
	}
	fillRect(canvas, canvas.Bounds(), backgroundColor)

	view, ok := l.getState()
	if !ok {
		// Idle frame: cleared background only.
		l.surface.publish()
		return
	}

	if view.Participant.ID != l.focal() {
		l.setFocal(view.Participant.ID)
		l.binder.Bind(view.Participant.ID)
	}

	if view.Source != nil && !view.VideoMuted {
		if frame := view.Source.Frame(); frame != nil {
			drawContain(canvas, frame)
			l.surface.publish()
			return
		}
	}

	l.drawAvatarWithPulse(canvas, view.Participant)
	l.surface.publish()
}

// drawContain letterboxes src into dst preserving aspect ratio, centered.
func drawContain(dst *image.RGBA, src image.Image) {
	cw := dst.Bounds().Dx()
	ch := dst.Bounds().Dy()
	vw := src.Bounds().Dx()
	vh := src.Bounds().Dy()
	if vw < 1 {
		vw = 1
	}
	if vh < 1 {
		vh = 1
	}
	scale := math.Min(float64(cw)/float64(vw), float64(ch)/float64(vh))
	dw := int(math.Round(float64(vw) * scale))
	dh := int(math.Round(float64(vh) * scale))
	dx := (cw - dw) / 2
	dy := (ch - dh) / 2
	rect := image.Rect(dx, dy, dx+dw, dy+dh)
	xdraw.ApproxBiLinear.Scale(dst, rect, src, src.Bounds(), xdraw.Src, nil)
}

// drawAvatarWithPulse paints the avatar fallback: a soft radial pulse ring
// sized by the current audio level, the participant's colored circle, and
// the initials centered inside it.
func (l *renderLoop) drawAvatarWithPulse(canvas *image.RGBA, p domain.Participant) {
	cw := canvas.Bounds().Dx()
	ch := canvas.Bounds().Dy()
	cx := cw / 2
	cy := ch / 2
	base := float64(min(cw, ch)) * 0.18
	level := l.binder.Level()
	outer := base + base*0.6*level

	drawPulseRing(canvas, cx, cy, base, outer)

	initials := p.Initials()
	fill, err := parseHexColor(domain.AvatarColor(initials))
	if err != nil {
		fill = color.RGBA{R: 0x22, G: 0x24, B: 0x2A, A: 0xFF}
	}
	drawDisc(canvas, cx, cy, base, fill)

	face, err := l.initialsFace(base * 0.9)
	if err != nil {
		log.Warn().Err(err).Str("module", "pip.render").Msg("initials face unavailable")
		return
	}
	drawCenteredText(canvas, face, initials, cx, cy)
}

// drawPulseRing blends a radial gradient from 35% pulse color at the base
// radius down to transparent at the outer radius.
func drawPulseRing(canvas *image.RGBA, cx, cy int, base, outer float64) {
	if outer <= base {
		return
	}
	r := int(math.Ceil(outer))
	bounds := canvas.Bounds().Intersect(image.Rect(cx-r, cy-r, cx+r+1, cy+r+1))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			d := math.Hypot(float64(x-cx), float64(y-cy))
			if d > outer {
				continue
			}
			frac := 0.0
			if d > base {
				frac = (d - base) / (outer - base)
			}
			blendPixel(canvas, x, y, pulseColor, 0.35*(1-frac))
		}
	}
}

func drawDisc(canvas *image.RGBA, cx, cy int, radius float64, fill color.RGBA) {
	r := int(math.Ceil(radius))
	bounds := canvas.Bounds().Intersect(image.Rect(cx-r, cy-r, cx+r+1, cy+r+1))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if math.Hypot(float64(x-cx), float64(y-cy)) <= radius {
				canvas.SetRGBA(x, y, fill)
			}
		}
	}
}

func drawCenteredText(canvas *image.RGBA, face font.Face, text string, cx, cy int) {
	d := font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(initialsColor),
		Face: face,
	}
	adv := d.MeasureString(text)
	metrics := face.Metrics()
	d.Dot = fixed.Point26_6{
		X: fixed.I(cx) - adv/2,
		Y: fixed.I(cy) + (metrics.Ascent-metrics.Descent)/2,
	}
	d.DrawString(text)
}

// initialsFace lazily builds the initials font face for the given pixel
// size. The size is fixed per canvas, so the face is built once.
func (l *renderLoop) initialsFace(size float64) (font.Face, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.face != nil {
		return l.face, nil
	}
	parsed, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	l.face = face
	return face, nil
}

func fillRect(canvas *image.RGBA, rect image.Rectangle, c color.RGBA) {
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			canvas.SetRGBA(x, y, c)
		}
	}
}

func blendPixel(canvas *image.RGBA, x, y int, c color.RGBA, alpha float64) {
	if alpha <= 0 {
		return
	}
	if alpha > 1 {
		alpha = 1
	}
	bg := canvas.RGBAAt(x, y)
	mix := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a)*(1-alpha) + float64(b)*alpha))
	}
	canvas.SetRGBA(x, y, color.RGBA{
		R: mix(bg.R, c.R),
		G: mix(bg.G, c.G),
		B: mix(bg.B, c.B),
		A: 0xFF,
	})
}

func parseHexColor(s string) (color.RGBA, error) {
	var c color.RGBA
	c.A = 0xFF
	if len(s) != 7 || s[0] != '#' {
		return c, errInvalidColor
	}
	hex := func(b byte) (uint8, bool) {
		switch {
		case b >= '0' && b <= '9':
			return b - '0', true
		case b >= 'a' && b <= 'f':
			return b - 'a' + 10, true
		case b >= 'A' && b <= 'F':
			return b - 'A' + 10, true
		}
		return 0, false
	}
	out := [3]uint8{}
	for i := 0; i < 3; i++ {
		hi, ok1 := hex(s[1+i*2])
		lo, ok2 := hex(s[2+i*2])
		if !ok1 || !ok2 {
			return c, errInvalidColor
		}
		out[i] = hi<<4 | lo
	}
	c.R, c.G, c.B = out[0], out[1], out[2]
	return c, nil
}
