package audio

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Output plays raw PCM.
type Output interface {
	// Play blocks until pcm has played, ctx is done, or Stop is called.
	Play(ctx context.Context, pcm []byte, f Format) error
	// Stop interrupts the current playback, if any.
	Stop()
}

// OtoOutput plays PCM through the system audio device via oto.
//
// The oto context is created on first use, since only one may exist per
// process and opening the device fails on headless machines that never play.
type OtoOutput struct {
	once    sync.Once
	ctx     *oto.Context
	format  Format
	initErr error

	mu     sync.Mutex
	active *oto.Player // currently playing, nil when idle
}

// NewOtoOutput creates an output for PCM in format f.
func NewOtoOutput(f Format) *OtoOutput {
	return &OtoOutput{format: f}
}

func (o *OtoOutput) init() error {
	o.once.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   o.format.SampleRate,
			ChannelCount: o.format.Channels,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			o.initErr = fmt.Errorf("open audio device: %w", err)
			return
		}
		<-ready
		o.ctx = ctx
	})
	return o.initErr
}

// Play implements Output. PCM in a format other than the one the output
// was created with is rejected, since the device rate is fixed.
func (o *OtoOutput) Play(ctx context.Context, pcm []byte, f Format) error {
	if f != o.format {
		return fmt.Errorf("format %+v does not match device format %+v", f, o.format)
	}
	if err := o.init(); err != nil {
		return err
	}

	player := o.ctx.NewPlayer(bytes.NewReader(pcm))
	o.mu.Lock()
	o.active = player
	o.mu.Unlock()

	player.Play()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
		case <-ticker.C:
		}
	}

	o.mu.Lock()
	o.active = nil
	o.mu.Unlock()

	if err := player.Close(); err != nil {
		return err
	}
	return ctx.Err()
}

// Stop implements Output. Safe to call concurrently and when idle.
func (o *OtoOutput) Stop() {
	o.mu.Lock()
	active := o.active
	o.mu.Unlock()

	if active != nil {
		active.Pause()
	}
}
