// Command rendercoredemo wires engine.Engine to a real SDL2 window: a
// minimal external collaborator exercising every layer of the rendering
// core (spec.md §4.5/§4.6), the same role agg_go's cmd/ demos play for
// its Agg2D context, generalized from a fixed demo scene to flag-driven
// window/config parameters.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/luciang/haiku-sub001/color"
	"github.com/luciang/haiku-sub001/drawmode"
	"github.com/luciang/haiku-sub001/drawstate"
	"github.com/luciang/haiku-sub001/engine"
	"github.com/luciang/haiku-sub001/hw/sdlhw"
	"github.com/luciang/haiku-sub001/internal/basics"
	"github.com/luciang/haiku-sub001/pattern"
)

func main() {
	width := flag.Int("width", 640, "window width in pixels")
	height := flag.Int("height", 480, "window height in pixels")
	title := flag.String("title", "rendercoredemo", "window title")
	flag.Parse()

	if err := run(*width, *height, *title); err != nil {
		log.Fatalf("rendercoredemo: %v", err)
	}
}

func run(width, height int, title string) error {
	backend, err := sdlhw.New(title, width, height)
	if err != nil {
		return fmt.Errorf("create sdl backend: %w", err)
	}
	defer backend.Close()

	eng := engine.New(backend)

	state := drawstate.NewRoot()
	state.SetHighColor(color.RGBA{R: 30, G: 144, B: 255, A: 255})
	state.SetLowColor(color.RGBA{R: 255, G: 255, B: 255, A: 255})
	state.SetPattern(pattern.SolidHigh)
	state.SetDrawingMode(drawmode.Copy)
	state.SetPenSize(1)

	eng.SetDrawState(state, 0, 0)
	eng.FillRect(basics.RectD{X1: 0, Y1: 0, X2: float64(width - 1), Y2: float64(height - 1)})

	state.SetHighColor(color.RGBA{R: 255, G: 69, B: 0, A: 255})
	eng.SetDrawState(state, 0, 0)
	cx, cy := float64(width)/2, float64(height)/2
	eng.FillEllipse(basics.PointD{X: cx, Y: cy}, float64(width)/6, float64(height)/6)

	state.SetHighColor(color.RGBA{A: 255})
	eng.SetDrawState(state, 0, 0)
	eng.DrawString("rendercoredemo", basics.PointD{X: 16, Y: 24}, 0, 0)

	if os.Getenv("RENDERCOREDEMO_HEADLESS") != "" {
		return nil
	}
	time.Sleep(2 * time.Second)
	return nil
}
