package board

import (
	"image/color"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/nowlink/pkg/framework"
)

// LED strip defaults.
const (
	DefaultLEDCount        = 64
	DefaultHueStep         = 50 * time.Millisecond
	DefaultFlashDuration   = 1000 * time.Millisecond
	DefaultBrightness      = 1
	DefaultBoostBrightness = 100
)

// FlashColor is shown while a message flash is active.
var FlashColor = color.RGBA{R: 255, A: 255}

// StripDriver pushes pixels to an LED strip.
type StripDriver interface {
	Show(pixels []color.RGBA) error
}

// LogStrip is a StripDriver only logging the first pixel.
type LogStrip struct {
	lock sync.Mutex
	last []color.RGBA
}

// Show implements StripDriver.
func (s *LogStrip) Show(pixels []color.RGBA) error {
	s.lock.Lock()
	s.last = append(s.last[:0], pixels...)
	s.lock.Unlock()
	if len(pixels) > 0 && glog.V(3) {
		glog.Infof("strip: %d pixels %v", len(pixels), pixels[0])
	}
	return nil
}

// Pixels returns a copy of the last shown pixels.
func (s *LogStrip) Pixels() []color.RGBA {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]color.RGBA(nil), s.last...)
}

// LEDStrip cycles the hue of all pixels and flashes red when
// a MessageArrived is received from the loop.
type LEDStrip struct {
	Driver          StripDriver
	HueStep         time.Duration
	FlashDuration   time.Duration
	Brightness      uint8
	BoostBrightness uint8

	pixels []color.RGBA

	lock       sync.Mutex
	hue        uint8
	last       time.Time
	flashUntil time.Time
	boostUntil time.Time
	flashing   bool
}

// NewLEDStrip creates an LEDStrip with count pixels.
func NewLEDStrip(drv StripDriver, count int) *LEDStrip {
	return &LEDStrip{
		Driver:          drv,
		HueStep:         DefaultHueStep,
		FlashDuration:   DefaultFlashDuration,
		Brightness:      DefaultBrightness,
		BoostBrightness: DefaultBoostBrightness,
		pixels:          make([]color.RGBA, count),
	}
}

// AddToLoop implements framework.LoopAdder.
func (s *LEDStrip) AddToLoop(l *framework.Loop) {
	l.AddController(framework.PrLvActuate, s)
}

// Control implements framework.Controller.
func (s *LEDStrip) Control(cc framework.ControlContext) error {
	now := cc.Time()
	s.lock.Lock()
	for _, msg := range cc.Messages() {
		if m, ok := msg.(*MessageArrived); ok {
			if until := m.At.Add(s.FlashDuration); until.After(s.flashUntil) {
				s.flashUntil = until
			}
		}
	}
	s.advance(now)
	s.flashing = now.Before(s.flashUntil)
	c := FlashColor
	if !s.flashing {
		brightness := s.Brightness
		if now.Before(s.boostUntil) {
			brightness = s.BoostBrightness
		}
		c = HSV(s.hue, 255, brightness)
	}
	s.lock.Unlock()

	for i := range s.pixels {
		s.pixels[i] = c
	}
	return s.Driver.Show(s.pixels)
}

// Boost raises the brightness until the specified time.
func (s *LEDStrip) Boost(until time.Time) {
	s.lock.Lock()
	s.boostUntil = until
	s.lock.Unlock()
}

// Hue returns the current hue.
func (s *LEDStrip) Hue() uint8 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.hue
}

// Flashing returns true if the last rendering showed the message flash.
func (s *LEDStrip) Flashing() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.flashing
}

func (s *LEDStrip) advance(now time.Time) {
	if s.last.IsZero() {
		s.last = now
		return
	}
	steps := now.Sub(s.last) / s.HueStep
	if steps <= 0 {
		return
	}
	s.hue += uint8(steps % 256)
	s.last = s.last.Add(steps * s.HueStep)
}

// HSV converts hue, saturation and value, all in 0-255, to RGB.
func HSV(h, s, v uint8) color.RGBA {
	if s == 0 {
		return color.RGBA{R: v, G: v, B: v, A: 255}
	}
	region := h / 43
	rem := (uint16(h) - uint16(region)*43) * 6
	p := uint8(uint16(v) * uint16(255-s) >> 8)
	q := uint8(uint16(v) * (255 - (uint16(s) * rem >> 8)) >> 8)
	t := uint8(uint16(v) * (255 - (uint16(s) * (255 - rem) >> 8)) >> 8)
	switch region {
	case 0:
		return color.RGBA{R: v, G: t, B: p, A: 255}
	case 1:
		return color.RGBA{R: q, G: v, B: p, A: 255}
	case 2:
		return color.RGBA{R: p, G: v, B: t, A: 255}
	case 3:
		return color.RGBA{R: p, G: q, B: v, A: 255}
	case 4:
		return color.RGBA{R: t, G: p, B: v, A: 255}
	default:
		return color.RGBA{R: v, G: p, B: q, A: 255}
	}
}
