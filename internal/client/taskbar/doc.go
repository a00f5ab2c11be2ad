// Package taskbar keeps a window list in step with the window manager.
//
// Sync is pull-based: the window manager tells it what kind of change
// happened and Sync reads the affected items back before pushing them to
// a View. Structural changes rebuild the whole list; focus, minimize and
// command-label changes patch single items.
package taskbar
