// Package playback plays audio data on the best available sound
// device backend. Sounds are queued on a ring buffer and written to
// the device from its callback, so Play returns immediately.
package playback

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/bendalab/audioio"
	"github.com/bendalab/audioio/backend"
	"github.com/chewxy/math32"
	"github.com/dh1tw/gosamplerate"
	"github.com/rs/zerolog"
	ringBuffer "github.com/zfjagann/golang-ring"
)

// Options contains the playback device parameters of a Player.
type Options struct {
	Rate      float64
	Channels  int
	FrameSize int
	QueueSize int
	Device    string
	Output    string
	Latency   time.Duration
	Logger    zerolog.Logger
}

// Option is a functional option to configure a Player.
type Option func(*Options)

// Rate sets the sampling rate of the playback device in Hertz.
func Rate(rate float64) Option {
	return func(o *Options) {
		o.Rate = rate
	}
}

// Channels sets the number of channels of the playback device.
func Channels(channels int) Option {
	return func(o *Options) {
		o.Channels = channels
	}
}

// FrameSize sets the number of frames written to the device per
// callback.
func FrameSize(frames int) Option {
	return func(o *Options) {
		o.FrameSize = frames
	}
}

// QueueSize sets the number of sounds that can be queued for
// playback before the oldest one is dropped.
func QueueSize(n int) Option {
	return func(o *Options) {
		o.QueueSize = n
	}
}

// Device selects a specific device backend by name instead of the
// first available one.
func Device(name string) Option {
	return func(o *Options) {
		o.Device = name
	}
}

// Output selects the hardware output device by name instead of the
// default output device.
func Output(name string) Option {
	return func(o *Options) {
		o.Output = name
	}
}

// Latency sets the desired output latency of the playback device.
func Latency(t time.Duration) Option {
	return func(o *Options) {
		o.Latency = t
	}
}

// Logger sets the logger for playback diagnostics.
func Logger(l zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// Player plays audio data asynchronously on a sound device.
type Player struct {
	rate      float64
	channels  int
	frameSize int
	name      string
	log       zerolog.Logger
	stream    backend.Stream

	mu      sync.Mutex
	drained *sync.Cond
	ring    ringBuffer.Ring
	cur     []float32
	pending int64
	volume  float32
	started bool
	closed  bool
}

// NewPlayer opens a playback stream on the first available device
// backend. The stream is started on the first call to Play.
func NewPlayer(opts ...Option) (*Player, error) {
	o := Options{
		Rate:      48000,
		Channels:  2,
		FrameSize: 1024,
		QueueSize: 32,
		Logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	p := &Player{
		rate:      o.Rate,
		channels:  o.Channels,
		frameSize: o.FrameSize,
		log:       o.Logger,
		volume:    1.0,
	}
	p.drained = sync.NewCond(&p.mu)
	p.ring.SetCapacity(o.QueueSize)

	names := backend.Available(backend.Device)
	if o.Device != "" {
		names = []string{o.Device}
	}
	var errs []error
	for _, name := range names {
		b := backend.Get(name)
		if b == nil || b.OpenDevice == nil {
			errs = append(errs, fmt.Errorf("%s: no playback support", name))
			continue
		}
		stream, err := b.OpenDevice(backend.DeviceParams{
			Rate:      p.rate,
			Channels:  p.channels,
			FrameSize: p.frameSize,
			Device:    o.Output,
			Latency:   o.Latency,
		}, p.writeCb)
		if err != nil {
			p.log.Debug().Err(err).Str("backend", name).
				Msg("unable to open playback stream")
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		p.stream = stream
		p.name = name
		p.log.Debug().Str("backend", name).Float64("rate", p.rate).
			Int("channels", p.channels).Msg("playback stream opened")
		return p, nil
	}
	return nil, errors.Join(backend.ErrNoBackend, errors.Join(errs...))
}

// writeCb is called by the device backend to fill the next output
// buffer from the queued sounds.
func (p *Player) writeCb(out []float32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for n < len(out) {
		if len(p.cur) == 0 {
			data := p.ring.Dequeue()
			if data == nil {
				break
			}
			p.cur = data.([]float32)
		}
		m := copy(out[n:], p.cur)
		if p.volume != 1.0 {
			for i := n; i < n+m; i++ {
				out[i] *= p.volume
			}
		}
		p.cur = p.cur[m:]
		n += m
	}
	p.pending -= int64(n)
	if p.pending <= 0 {
		p.pending = 0
		p.drained.Broadcast()
	}

	// fill with silence
	for i := n; i < len(out); i++ {
		out[i] = 0
	}
}

// Backend returns the name of the device backend the Player runs on.
func (p *Player) Backend() string {
	return p.name
}

// Rate returns the sampling rate of the playback device in Hertz.
func (p *Player) Rate() float64 {
	return p.rate
}

// Channels returns the number of channels of the playback device.
func (p *Player) Channels() int {
	return p.channels
}

// SetVolume sets the playback volume. 1 replays the data as is.
func (p *Player) SetVolume(volume float32) {
	p.mu.Lock()
	p.volume = volume
	p.mu.Unlock()
}

// Volume returns the current playback volume.
func (p *Player) Volume() float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Play queues the interleaved data for playback and returns
// immediately. The data is converted to the channel count and
// sampling rate of the playback device if necessary.
func (p *Player) Play(data []float32, rate float64, channels int) error {
	if len(data) == 0 {
		return nil
	}
	if channels < 1 {
		channels = 1
	}
	if channels > p.channels {
		data = audioio.DownMix(data, channels, p.channels)
	} else if channels < p.channels {
		data = audioio.AdjustChannels(data, channels, p.channels)
	}
	if rate > 0 && rate != p.rate {
		converted, err := gosamplerate.Simple(data, p.rate/rate,
			p.channels, gosamplerate.SRC_SINC_FASTEST)
		if err != nil {
			return fmt.Errorf("unable to convert sampling rate from %.0f to %.0f Hz: %w",
				rate, p.rate, err)
		}
		data = converted
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errors.New("player is closed")
	}
	if p.ring.Length() == p.ring.Capacity() {
		p.log.Debug().Msg("playback queue full, dropping oldest sound")
		if dropped := p.ring.Dequeue(); dropped != nil {
			p.pending -= int64(len(dropped.([]float32)))
		}
	}
	p.ring.Enqueue(data)
	p.pending += int64(len(data))
	start := !p.started
	p.started = true
	p.mu.Unlock()

	if start {
		if err := p.stream.Start(); err != nil {
			return fmt.Errorf("unable to start playback stream: %w", err)
		}
	}
	return nil
}

// PlayBlocking queues the interleaved data for playback and returns
// after it has been played.
func (p *Player) PlayBlocking(data []float32, rate float64, channels int) error {
	if err := p.Play(data, rate, channels); err != nil {
		return err
	}
	p.Drain()
	return nil
}

// Drain blocks until all queued sounds have been written to the
// playback device.
func (p *Player) Drain() {
	p.mu.Lock()
	for p.pending > 0 && !p.closed {
		p.drained.Wait()
	}
	p.mu.Unlock()
	// let the device play out the last buffer
	time.Sleep(time.Duration(float64(p.frameSize) / p.rate * float64(time.Second)))
}

// Stop discards all queued sounds and stops the playback stream.
func (p *Player) Stop() error {
	p.mu.Lock()
	for p.ring.Dequeue() != nil {
	}
	p.cur = nil
	p.pending = 0
	p.drained.Broadcast()
	started := p.started
	p.started = false
	p.mu.Unlock()

	if started {
		return p.stream.Stop()
	}
	return nil
}

// Close stops playback and closes the device stream.
func (p *Player) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.drained.Broadcast()
	p.mu.Unlock()

	if err := p.Stop(); err != nil {
		return err
	}
	return p.stream.Close()
}

// Beep plays a fade-in and fade-out pure tone of the given duration
// and frequency and returns after it has been played.
func (p *Player) Beep(duration time.Duration, frequency float64, amplitude float32, fadetime float64) error {
	data := Tone(duration, frequency, amplitude, p.rate, fadetime)
	return p.PlayBlocking(data, p.rate, 1)
}

// BeepNote is like Beep with the frequency given as a musical note
// like "a4" relative to a4freq.
func (p *Player) BeepNote(duration time.Duration, note string, a4freq float64, amplitude float32, fadetime float64) error {
	freq, err := Note2Freq(note, a4freq)
	if err != nil {
		return err
	}
	return p.Beep(duration, freq, amplitude, fadetime)
}

// Tone synthesizes a single channel sine wave of the given duration
// and frequency, faded in and out with squared sine ramps.
func Tone(duration time.Duration, frequency float64, amplitude float32, rate, fadetime float64) []float32 {
	frames := int(math.Round(duration.Seconds() * rate))
	data := make([]float32, frames)
	omega := 2 * math32.Pi * float32(frequency/rate)
	for i := range data {
		data[i] = amplitude * math32.Sin(omega*float32(i))
	}
	Fade(data, 1, rate, fadetime)
	return data
}

var (
	defaultPlayer *Player
	defaultMu     sync.Mutex
	defaultErr    error
)

func getDefaultPlayer() (*Player, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultPlayer == nil && defaultErr == nil {
		defaultPlayer, defaultErr = NewPlayer()
	}
	return defaultPlayer, defaultErr
}

// Play plays the interleaved data on the default player and returns
// immediately.
func Play(data []float32, rate float64, channels int) error {
	p, err := getDefaultPlayer()
	if err != nil {
		return err
	}
	return p.Play(data, rate, channels)
}

// PlayBlocking plays the interleaved data on the default player and
// returns after it has been played.
func PlayBlocking(data []float32, rate float64, channels int) error {
	p, err := getDefaultPlayer()
	if err != nil {
		return err
	}
	return p.PlayBlocking(data, rate, channels)
}

// Beep plays a 880 Hz tone of half a second on the default player.
func Beep() error {
	p, err := getDefaultPlayer()
	if err != nil {
		return err
	}
	return p.Beep(500*time.Millisecond, 880, 0.5, 0.05)
}

// Close closes the default player.
func Close() error {
	defaultMu.Lock()
	p := defaultPlayer
	defaultPlayer = nil
	defaultErr = nil
	defaultMu.Unlock()
	if p == nil {
		return nil
	}
	return p.Close()
}
