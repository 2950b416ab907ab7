package main

import (
	// compiled-in audio backends
	_ "github.com/bendalab/audioio/backend/aiffile"
	_ "github.com/bendalab/audioio/backend/mal"
	_ "github.com/bendalab/audioio/backend/mpeg"
	_ "github.com/bendalab/audioio/backend/opusfile"
	_ "github.com/bendalab/audioio/backend/pa"
	_ "github.com/bendalab/audioio/backend/vorbis"
	_ "github.com/bendalab/audioio/backend/wave"
)

func main() {
	Execute()
}
