package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/webterminator/internal/client/shortcut"
)

type options struct {
	server    string
	keymap    string
	namespace string
	logFile   string
	logLevel  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	root := &cobra.Command{
		Use:   "webterm",
		Short: "Multi-window terminal client",
		Long: `webterm connects to a webterminator server and opens one shell per window.

Windows are drawn side by side in the console. Drag a header to move a
window, drag its bottom-right corner to resize it, and click a taskbar
entry to bring it forward. Press Ctrl+] to quit.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.server, "server", "s", "ws://localhost:3002/ws", "websocket URL of the session server")
	flags.StringVarP(&opts.keymap, "keymap", "k", "", "YAML file overriding the default key bindings")
	flags.StringVar(&opts.namespace, "namespace", "", "prefix for window ids (random when empty)")
	flags.StringVar(&opts.logFile, "log-file", "", "write logs to this file")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(newKeysCmd(&opts))
	return root
}

func newKeysCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "Print the effective key bindings",
		RunE: func(cmd *cobra.Command, args []string) error {
			km, err := loadKeymap(opts.keymap)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, b := range km.Bindings() {
				mode := "claimed"
				if !b.Claim {
					mode = "passthrough"
				}
				fmt.Fprintf(out, "%-16s %-14s %s\n", b.Chord, b.Action, mode)
			}
			return nil
		},
	}
}

// loadKeymap returns the bindings the console uses. Chords a terminal
// cannot send, such as the default Ctrl+Shift+V, are moved to a console
// chord when one is free.
func loadKeymap(path string) (*shortcut.Keymap, error) {
	km := shortcut.DefaultKeymap()
	if path != "" {
		var err error
		if km, err = shortcut.LoadKeymapFile(path); err != nil {
			return nil, fmt.Errorf("failed to load keymap: %w", err)
		}
	}
	km.AdaptToConsole()
	return km, nil
}
