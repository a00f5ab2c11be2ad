// Package vtrender renders terminal sessions headlessly with vt10x.
//
// A Renderer keeps a virtual screen for one window: session output is fed
// through the emulator, Fit converts a pixel area into a cell grid, and
// keystrokes typed or pasted into it are reported through OnData.
package vtrender
