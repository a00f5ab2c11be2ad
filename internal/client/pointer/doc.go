// Package pointer turns pointer gestures into window moves and resizes.
//
// One Controller holds the pointer capture for the whole desktop. While a
// drag, window resize or taskbar resize is in progress, further presses
// are ignored until the pointer is released.
package pointer
