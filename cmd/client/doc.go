// Command webterm is a console client for a webterminator server.
//
// It draws every terminal window on a character grid, one cell per
// vt10x cell, with a taskbar on the last row. Windows are moved by
// dragging their header and resized from the bottom-right corner;
// keyboard shortcuts follow the configured keymap. Ctrl+] quits.
package main
