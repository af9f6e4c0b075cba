package sidenote_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aretw0/sidenote"
	"github.com/aretw0/sidenote/pkg/core"
)

// Example_basic saves a note into a directory and reads it back.
func Example_basic() {
	tmpDir, err := os.MkdirTemp("", "sidenote-example-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	svc, err := sidenote.New(tmpDir, sidenote.WithVersioning(false))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	n := core.NewNote("hello", time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	n.Title = "Hello"
	n.Content = "<p>First note</p>"
	n.Tags = []string{"example"}
	if err := svc.Save(ctx, n); err != nil {
		log.Fatal(err)
	}

	got, err := svc.Get(ctx, "hello")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(got.Title, got.Tags)

	// Output:
	// Hello [example]
}

// Example_reconciler drives the view state over an in-memory store.
func Example_reconciler() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stack, err := sidenote.Open(ctx, "", sidenote.WithAdapter(sidenote.AdapterMemory))
	if err != nil {
		log.Fatal(err)
	}
	defer stack.Close()

	r := sidenote.NewReconciler(stack)
	if err := r.Start(ctx); err != nil {
		log.Fatal(err)
	}

	session, err := r.CreateNote(ctx)
	if err != nil {
		log.Fatal(err)
	}
	session.SetTitle("Groceries")
	if err := r.CloseEditor(ctx); err != nil {
		log.Fatal(err)
	}

	for _, n := range r.Notes() {
		fmt.Println(n.Title)
	}

	// Output:
	// Groceries
}
