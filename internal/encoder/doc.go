// Package encoder drives ffmpeg for timelapse encodes.
//
// It owns the concat manifest format, the fixed x264 argument list, the
// rotation filter mapping, and the frame= progress scraping. The rest of the
// system sees only Run, Probe, and the one-line ParseFrame contract, so a
// change in ffmpeg's diagnostic phrasing stays contained here.
package encoder
