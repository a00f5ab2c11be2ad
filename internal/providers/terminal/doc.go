// Package terminal starts shell processes attached to a pseudo-terminal.
//
// A Spawner turns a Spec into a running Process. Output is not buffered: the
// caller attaches data and exit callbacks once, and a reader goroutine
// delivers PTY output in read order followed by exactly one exit callback.
// Output chunks never split a UTF-8 sequence.
//
// Example Usage:
//
//	proc, err := terminal.NewSpawner().Spawn(terminal.Spec{
//		Shell: "/bin/bash",
//		Cols:  80,
//		Rows:  24,
//		Dir:   os.Getenv("HOME"),
//		Term:  "xterm-color",
//	})
//	if err != nil {
//		return err
//	}
//	proc.Attach(
//		func(chunk []byte) { fmt.Print(string(chunk)) },
//		func(st terminal.ExitStatus) { fmt.Println("exit", st.Code) },
//	)
//	proc.Write([]byte("ls\r"))
package terminal
