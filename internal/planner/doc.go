// Package planner holds the pure decisions of a render: the bitrate budget,
// audio track selection, ffmpeg filter chains, playlist order, and the
// per-item job plans that tie them together. Nothing here runs a process or
// touches media; the ffmpeg and render packages consume the results.
package planner
