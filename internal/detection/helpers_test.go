package detection

import (
	"context"
	"sync"
	"time"
)

// newFrame builds an RGBA frame whose pixel colours come from px.
func newFrame(w, h int, px func(x, y int) (r, g, b byte)) *Frame {
	pix := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b := px(x, y)
			i := (y*w + x) * 4
			pix[i], pix[i+1], pix[i+2], pix[i+3] = r, g, b, 255
		}
	}
	return &Frame{Width: w, Height: h, Pix: pix}
}

func gray(v byte) (byte, byte, byte) { return v, v, v }

// sbsFrame has identical horizontal gradients in both halves.
func sbsFrame(w, h int) *Frame {
	half := w / 2
	return newFrame(w, h, func(x, _ int) (byte, byte, byte) {
		return gray(byte((x % half) * 255 / (half - 1)))
	})
}

// tbFrame has identical vertical gradients in both halves.
func tbFrame(w, h int) *Frame {
	half := h / 2
	return newFrame(w, h, func(_, y int) (byte, byte, byte) {
		return gray(byte((y % half) * 255 / (half - 1)))
	})
}

func uniformFrame(w, h int, v byte) *Frame {
	return newFrame(w, h, func(_, _ int) (byte, byte, byte) { return gray(v) })
}

type fakeProvider struct {
	mu       sync.Mutex
	width    int
	height   int
	duration time.Duration
	frame    *Frame
	frameErr error

	loadFn func(ctx context.Context, p *fakeProvider) error
	seekFn func(ctx context.Context, at time.Duration) error

	loads    int
	seekedTo time.Duration
	seeks    int
}

func (p *fakeProvider) VideoSize() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.width, p.height
}

func (p *fakeProvider) setSize(w, h int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.width, p.height = w, h
}

func (p *fakeProvider) Duration() time.Duration { return p.duration }

func (p *fakeProvider) Load(ctx context.Context) error {
	p.mu.Lock()
	p.loads++
	p.mu.Unlock()
	if p.loadFn != nil {
		return p.loadFn(ctx, p)
	}
	return nil
}

func (p *fakeProvider) Seek(ctx context.Context, at time.Duration) error {
	p.mu.Lock()
	p.seeks++
	p.seekedTo = at
	p.mu.Unlock()
	if p.seekFn != nil {
		return p.seekFn(ctx, at)
	}
	return nil
}

func (p *fakeProvider) ReadFrame() (*Frame, error) {
	return p.frame, p.frameErr
}

// blockUntilDone models a source that never reports back.
func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

// panicProvider panics from every method.
type panicProvider struct{}

func (panicProvider) VideoSize() (int, int)                        { panic("size") }
func (panicProvider) Duration() time.Duration                      { panic("duration") }
func (panicProvider) Load(context.Context) error                   { panic("load") }
func (panicProvider) Seek(context.Context, time.Duration) error    { panic("seek") }
func (panicProvider) ReadFrame() (*Frame, error)                   { panic("read") }
