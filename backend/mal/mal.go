// Package mal plays audio through the miniaudio library via
// github.com/gen2brain/malgo.
//
// Importing the package registers the "mal" device backend.
package mal

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/gen2brain/malgo"

	"github.com/bendalab/audioio/backend"
)

func init() {
	backend.Register(&backend.Backend{
		Name:       "mal",
		Kind:       backend.Device,
		Priority:   80,
		Probe:      probe,
		OpenDevice: openDevice,
		Info:       "miniaudio playback",
		Module:     "github.com/gen2brain/malgo",
	})
}

func probe() error {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return err
	}
	defer ctx.Free()
	return ctx.Uninit()
}

type stream struct {
	ctx *malgo.AllocatedContext
	dev *malgo.Device
}

func (s *stream) Start() error { return s.dev.Start() }
func (s *stream) Stop() error  { return s.dev.Stop() }

func (s *stream) Close() error {
	s.dev.Uninit()
	err := s.ctx.Uninit()
	s.ctx.Free()
	return err
}

func openDevice(p backend.DeviceParams, cb backend.WriteCb) (backend.Stream, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, err
	}
	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatF32
	config.Playback.Channels = uint32(p.Channels)
	config.SampleRate = uint32(p.Rate)
	config.PeriodSizeInFrames = uint32(p.FrameSize)
	if p.Latency > 0 {
		config.PeriodSizeInFrames = 0
		config.PeriodSizeInMilliseconds = uint32(p.Latency.Milliseconds())
	}
	if p.Device != "" {
		infos, err := ctx.Devices(malgo.Playback)
		if err != nil {
			ctx.Uninit()
			ctx.Free()
			return nil, err
		}
		found := false
		for i := range infos {
			if strings.EqualFold(infos[i].Name(), p.Device) {
				config.Playback.DeviceID = infos[i].ID.Pointer()
				found = true
				break
			}
		}
		if !found {
			ctx.Uninit()
			ctx.Free()
			return nil, fmt.Errorf("unknown output device %q", p.Device)
		}
	}
	channels := p.Channels
	var scratch []float32
	callbacks := malgo.DeviceCallbacks{
		Data: func(output, input []byte, frameCount uint32) {
			n := int(frameCount) * channels
			if cap(scratch) < n {
				scratch = make([]float32, n)
			}
			out := scratch[:n]
			cb(out)
			for i, v := range out {
				binary.LittleEndian.PutUint32(output[4*i:], math.Float32bits(v))
			}
		},
	}
	dev, err := malgo.InitDevice(ctx.Context, config, callbacks)
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return nil, err
	}
	return &stream{ctx: ctx, dev: dev}, nil
}
