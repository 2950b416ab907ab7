package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bendalab/audioio"
	"github.com/bendalab/audioio/metadata"
	"github.com/bendalab/audioio/utils"
	"github.com/dh1tw/gosamplerate"
	"github.com/spf13/cobra"
)

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert files...",
	Short: "Convert audio files to other formats and encodings",
	Long: `Convert audio files to other formats and encodings.

Without --output each input file is converted into a file of the
same name with the extension of the target format. With --output
pointing to a directory the converted files are written there. With
--output naming a file, all input files are converted into this
single file.

Metadata and markers are copied to the converted files as far as the
target format supports them.
`,
	RunE: runConvert,
}

type convertOpts struct {
	output     string
	format     string
	encoding   string
	channels   []int
	scale      float64
	rate       float64
	unwrap     float64
	unwrapClip float64
	merge      int
	strip      bool
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().StringP("output", "o", "", "output file or directory")
	convertCmd.Flags().StringP("format", "f", "", "target file format (default from output extension)")
	convertCmd.Flags().StringP("encoding", "e", "", "target encoding, e.g. PCM_16")
	convertCmd.Flags().StringP("channels", "c", "", "channels to keep, e.g. '0' or '0,2-3'")
	convertCmd.Flags().Float64P("scale", "s", 1.0, "scale the data by this factor")
	convertCmd.Flags().Float64P("rate", "d", 0, "target sampling rate in Hertz")
	convertCmd.Flags().Float64P("unwrap", "u", 0, "unwrap clipped data with this threshold and downscale by two")
	convertCmd.Flags().Float64P("unwrap-clip", "U", 0, "unwrap clipped data with this threshold and clip")
	convertCmd.Flags().IntP("merge", "n", 0, "merge groups of this many consecutive files")
	convertCmd.Flags().BoolP("strip", "m", false, "do not copy metadata and markers")
	convertCmd.Flags().BoolP("list-formats", "F", false, "list supported file formats")
	convertCmd.Flags().BoolP("list-encodings", "E", false, "list encodings of the target format")
}

func runConvert(cmd *cobra.Command, args []string) error {
	o := convertOpts{}
	o.output, _ = cmd.Flags().GetString("output")
	o.format, _ = cmd.Flags().GetString("format")
	o.encoding, _ = cmd.Flags().GetString("encoding")
	o.scale, _ = cmd.Flags().GetFloat64("scale")
	o.rate, _ = cmd.Flags().GetFloat64("rate")
	o.unwrap, _ = cmd.Flags().GetFloat64("unwrap")
	o.unwrapClip, _ = cmd.Flags().GetFloat64("unwrap-clip")
	o.merge, _ = cmd.Flags().GetInt("merge")
	o.strip, _ = cmd.Flags().GetBool("strip")

	if list, _ := cmd.Flags().GetBool("list-formats"); list {
		for _, f := range audioio.Formats() {
			fmt.Println(f)
		}
		return nil
	}
	if list, _ := cmd.Flags().GetBool("list-encodings"); list {
		format := o.format
		if format == "" {
			format = "WAV"
		}
		for _, e := range audioio.Encodings(format) {
			fmt.Println(e)
		}
		return nil
	}
	if len(args) == 0 {
		return fmt.Errorf("no input files specified")
	}

	if o.format != "" {
		if !utils.StringInSlice(strings.ToUpper(o.format), audioio.Formats()) {
			return fmt.Errorf("unknown format %q", o.format)
		}
		if o.encoding != "" &&
			!utils.StringInSlice(strings.ToUpper(o.encoding), audioio.Encodings(o.format)) {
			return fmt.Errorf("format %s does not support encoding %q", o.format, o.encoding)
		}
	}

	if sel, _ := cmd.Flags().GetString("channels"); sel != "" {
		channels, err := parseChannels(sel)
		if err != nil {
			return err
		}
		o.channels = channels
	}

	groups := [][]string{args}
	if o.merge > 1 {
		groups = nil
		for i := 0; i < len(args); i += o.merge {
			end := i + o.merge
			if end > len(args) {
				end = len(args)
			}
			groups = append(groups, args[i:end])
		}
	} else if !isFile(o.output) {
		// no merging, each file on its own
		groups = nil
		for _, path := range args {
			groups = append(groups, []string{path})
		}
	}

	for _, group := range groups {
		outPath, err := outputPath(group[0], o)
		if err != nil {
			return err
		}
		if err := convertGroup(group, outPath, o); err != nil {
			return err
		}
	}
	return nil
}

// isFile reports whether the output option names a single file
// rather than a directory.
func isFile(output string) bool {
	return output != "" && filepath.Ext(output) != ""
}

func outputPath(path string, o convertOpts) (string, error) {
	format := o.format
	if format == "" && isFile(o.output) {
		format = strings.ToUpper(strings.TrimPrefix(filepath.Ext(o.output), "."))
	}
	if format == "" {
		format = "WAV"
	}
	ext := "." + strings.ToLower(format)
	if isFile(o.output) {
		return o.output, nil
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ext
	out := filepath.Join(filepath.Dir(path), base)
	if o.output != "" {
		out = filepath.Join(o.output, base)
	}
	if out == path {
		return "", fmt.Errorf("%s: output would overwrite the input file", path)
	}
	return out, nil
}

// parseChannels parses a channel selection like "0,2-3" into a list
// of channel indices.
func parseChannels(s string) ([]int, error) {
	var channels []int
	for _, field := range strings.Split(s, ",") {
		first, last, found := strings.Cut(field, "-")
		a, err := strconv.Atoi(strings.TrimSpace(first))
		if err != nil || a < 0 {
			return nil, fmt.Errorf("invalid channel selection %q", s)
		}
		b := a
		if found {
			b, err = strconv.Atoi(strings.TrimSpace(last))
			if err != nil || b < a {
				return nil, fmt.Errorf("invalid channel selection %q", s)
			}
		}
		for c := a; c <= b; c++ {
			channels = append(channels, c)
		}
	}
	return channels, nil
}

// pickChannels extracts the selected channels from interleaved data.
func pickChannels(data []float32, channels int, sel []int) []float32 {
	frames := len(data) / channels
	out := make([]float32, 0, frames*len(sel))
	for i := 0; i < frames; i++ {
		for _, c := range sel {
			if c < channels {
				out = append(out, data[i*channels+c])
			} else {
				out = append(out, 0)
			}
		}
	}
	return out
}

// convertBlockFrames is the number of frames processed per block.
// Input files of any size pass through in bounded memory.
const convertBlockFrames = 4096

func convertGroup(paths []string, outPath string, o convertOpts) error {
	// open all inputs first, so metadata, markers and the sampling
	// rate are known before the first sample is written
	var loaders []*audioio.Loader
	defer func() {
		for _, l := range loaders {
			l.Close()
		}
	}()
	var markers []metadata.Marker
	var md metadata.Metadata
	var rate float64
	var channels int
	var offset int64
	for _, path := range paths {
		l, err := audioio.NewLoader(path)
		if err != nil {
			return err
		}
		loaders = append(loaders, l)
		if rate == 0 {
			rate = l.Rate
			channels = l.Channels
			if len(o.channels) > 0 {
				channels = len(o.channels)
			}
		} else if l.Rate != rate {
			return fmt.Errorf("%s: sampling rate %.0f Hz differs from %.0f Hz", path, l.Rate, rate)
		}
		switch {
		case o.unwrapClip > 0:
			l.SetUnwrap(float32(o.unwrapClip), true, false, "")
		case o.unwrap > 0:
			l.SetUnwrap(float32(o.unwrap), false, true, "")
		}
		if !o.strip {
			if md == nil {
				md = l.Metadata()
			}
			for _, m := range l.Markers() {
				m.Pos += offset
				markers = append(markers, m)
			}
		}
		offset += l.Frames
	}

	ratio := 1.0
	outRate := rate
	if o.rate > 0 && o.rate != rate {
		ratio = o.rate / rate
		outRate = o.rate
		for i := range markers {
			markers[i].Pos = int64(float64(markers[i].Pos) * ratio)
			markers[i].Span = int64(float64(markers[i].Span) * ratio)
		}
	}

	opts := []audioio.WriteOption{audioio.WithChannels(channels)}
	if o.format != "" {
		opts = append(opts, audioio.WithFormat(o.format))
	}
	if o.encoding != "" {
		opts = append(opts, audioio.WithEncoding(o.encoding))
	}
	if !o.strip {
		if md == nil {
			md = metadata.Metadata{}
		}
		metadata.AddHistory(md, metadata.BextHistory(o.encoding, outRate, channels, "audioio convert"))
		opts = append(opts, audioio.WithMetadata(md), audioio.WithMarkers(markers))
	}

	// stream the blocks into the output file; formats that can only
	// be encoded in a single pass are assembled in memory instead
	var buffer []float32
	w, err := audioio.NewWriter(outPath, outRate, opts...)
	if err != nil {
		if !errors.Is(err, audioio.ErrNoBackend) {
			return err
		}
		w = nil
	}
	sink := func(data []float32) error {
		if w != nil {
			_, err := w.WriteFrames(data)
			return err
		}
		buffer = append(buffer, data...)
		return nil
	}

	var src gosamplerate.Src
	if ratio != 1.0 {
		src, err = gosamplerate.New(gosamplerate.SRC_SINC_MEDIUM_QUALITY, channels, 65536)
		if err != nil {
			return err
		}
		defer gosamplerate.Delete(src)
	}

	for _, l := range loaders {
		err := l.EachBlock(convertBlockFrames, 0, func(_ int64, data []float32) error {
			if o.scale != 1.0 {
				data = append([]float32(nil), data...)
				audioio.Scale(data, float32(o.scale))
			}
			if len(o.channels) > 0 {
				data = pickChannels(data, l.Channels, o.channels)
			}
			if ratio != 1.0 {
				converted, err := src.Process(data, ratio, false)
				if err != nil {
					return fmt.Errorf("unable to convert sampling rate to %.0f Hz: %w", o.rate, err)
				}
				data = converted
			}
			return sink(data)
		})
		if err != nil {
			return err
		}
		log.Debug().Str("file", l.Path()).Msg("converted")
	}
	if ratio != 1.0 {
		// flush the remaining output of the rate converter
		tail, err := src.Process(nil, ratio, true)
		if err != nil {
			return err
		}
		if err := sink(tail); err != nil {
			return err
		}
	}

	if w != nil {
		if err := w.Close(); err != nil {
			return err
		}
	} else if err := audioio.Write(outPath, buffer, outRate, opts...); err != nil {
		return err
	}
	log.Info().Str("file", outPath).Float64("rate", outRate).
		Int("channels", channels).Msg("written")
	return nil
}
