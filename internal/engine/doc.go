// Package engine wraps the external video encoder the compressor delegates
// all codec and container work to.
//
// The Engine interface is deliberately narrow and mirrors a sandboxed
// encoder: load it, stage input bytes in its workspace, run one command,
// read the output back, and listen to its log and progress events while the
// command runs. FFmpeg implements it on top of a native ffmpeg binary and a
// private scratch directory per handle.
//
// Engines are owned by exactly one compression session. They are created
// lazily through a Factory and must be torn down with Terminate.
package engine
