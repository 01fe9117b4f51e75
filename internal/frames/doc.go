// Package frames turns a directory of uploaded images into the ordered,
// timed frame list the encoder consumes.
//
// Ordering is natural alphanumeric so inconsistently zero-padded names such
// as frame2.png and frame10.png play back in the intended sequence. Durations
// give every frame 1/fps seconds except the final SlowEndingFrames, which are
// held at SlowEndingFPS to produce a decelerating ending.
package frames
