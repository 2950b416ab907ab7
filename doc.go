// Package audioio provides a uniform interface for reading, writing
// and playing audio data. The actual decoding, encoding and device
// I/O is delegated to optional backends that register themselves when
// their package is imported, see the backend package. Audio data is
// interleaved float32 in the range [-1, 1], first index frames,
// second index channels.
//
// Load reads a whole file into memory, Loader gives buffered random
// access to arbitrarily large files through a sliding window, Write
// encodes data with the best backend for the target format. Metadata
// and markers ride along where the file format stores them, see the
// metadata package.
package audioio
