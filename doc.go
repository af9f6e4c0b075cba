// Package sidenote is the composition root of the sidenote note store.
//
// It wires the note service, the storage area adapters and the preference
// store behind functional options, the same way for a library user and for
// the CLI.
//
// Notes live in a synchronized key-value area, one JSON record per key
// ("note_<id>"). The area can be a directory of files (optionally versioned
// with git), a SQLite database, Redis or memory. Per-device preferences live
// in a separate local area.
//
// Usage:
//
//	stack, err := sidenote.Open(ctx, "./notes",
//		sidenote.WithAutoInit(true),
//		sidenote.WithLogger(logger),
//	)
//	defer stack.Close()
//
//	r := sidenote.NewReconciler(stack)
//	_ = r.Start(ctx)
//	session, _ := r.CreateNote(ctx)
//	session.SetTitle("Groceries")
//	_ = r.CloseEditor(ctx)
package sidenote
