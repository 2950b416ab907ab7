// Package pa plays audio through PortAudio via
// github.com/gordonklaus/portaudio.
//
// Importing the package registers the "pa" device backend.
package pa

import (
	"fmt"
	"strings"

	"github.com/gordonklaus/portaudio"

	"github.com/bendalab/audioio/backend"
)

func init() {
	backend.Register(&backend.Backend{
		Name:       "pa",
		Kind:       backend.Device,
		Priority:   100,
		Probe:      probe,
		OpenDevice: openDevice,
		Info:       "PortAudio playback",
		Module:     "github.com/gordonklaus/portaudio",
	})
}

func probe() error {
	if err := portaudio.Initialize(); err != nil {
		return err
	}
	return portaudio.Terminate()
}

type stream struct {
	s *portaudio.Stream
}

func (s *stream) Start() error { return s.s.Start() }
func (s *stream) Stop() error  { return s.s.Stop() }

func (s *stream) Close() error {
	err := s.s.Close()
	if terr := portaudio.Terminate(); err == nil {
		err = terr
	}
	return err
}

// outputDevice finds an output device by name, case insensitively.
func outputDevice(name string) (*portaudio.DeviceInfo, error) {
	if name == "" {
		return portaudio.DefaultOutputDevice()
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	for _, dev := range devices {
		if dev.MaxOutputChannels > 0 && strings.EqualFold(dev.Name, name) {
			return dev, nil
		}
	}
	return nil, fmt.Errorf("unknown output device %q", name)
}

func openDevice(p backend.DeviceParams, cb backend.WriteCb) (backend.Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	dev, err := outputDevice(p.Device)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	latency := p.Latency
	if latency == 0 {
		latency = dev.DefaultLowOutputLatency
	}
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: p.Channels,
			Latency:  latency,
		},
		SampleRate:      p.Rate,
		FramesPerBuffer: p.FrameSize,
	}
	s, err := portaudio.OpenStream(params,
		func(out []float32) {
			cb(out)
		})
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	return &stream{s: s}, nil
}
