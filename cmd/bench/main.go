package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/sidenote"
	"github.com/aretw0/sidenote/pkg/core"
)

func main() {
	count := flag.Int("count", 1000, "Number of notes to generate")
	adapter := flag.String("adapter", sidenote.AdapterFS, "Storage adapter: fs or sqlite")
	keep := flag.Bool("keep", false, "Keep the benchmark directory after running")
	flag.Parse()

	benchDir, err := os.MkdirTemp("", "sidenote_bench_")
	if err != nil {
		panic(err)
	}
	defer func() {
		if !*keep {
			os.RemoveAll(benchDir)
		} else {
			fmt.Printf("Keeping bench dir: %s\n", benchDir)
		}
	}()

	uri := benchDir
	if *adapter == sidenote.AdapterSQLite {
		uri = filepath.Join(benchDir, "notes.db")
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	service, err := sidenote.New(uri,
		sidenote.WithAdapter(*adapter),
		sidenote.WithLogger(logger),
		sidenote.WithVersioning(false),
	)
	if err != nil {
		panic(err)
	}
	defer service.Close()

	ctx := context.Background()

	// Bulk writes go straight to the area as one batch, the way a sync
	// delivers many remote records at once.
	fmt.Printf("Generating %d notes with the %s adapter in %s...\n", *count, *adapter, benchDir)
	startGen := time.Now()
	now := time.Now()
	batch := make(map[string]json.RawMessage, *count)
	for i := 0; i < *count; i++ {
		n := core.NewNote(fmt.Sprintf("bench-%05d", i), now.Add(-time.Duration(i)*time.Minute))
		n.Title = fmt.Sprintf("Note %d", i)
		n.Content = fmt.Sprintf("<p>Benchmark note %d with a few words of content.</p>", i)
		n.Tags = []string{"benchmark", fmt.Sprintf("group-%d", i%10)}
		data, err := core.MarshalNote(n)
		if err != nil {
			panic(err)
		}
		batch[core.NoteKey(n.ID)] = data
	}
	if err := service.Area().Set(ctx, batch); err != nil {
		panic(err)
	}
	fmt.Printf("Generation took: %v\n", time.Since(startGen))

	fmt.Println("Running List...")
	startList := time.Now()
	list, err := service.List(ctx)
	if err != nil {
		panic(err)
	}
	listDuration := time.Since(startList)

	fmt.Println("Running ListTags...")
	startTags := time.Now()
	tags, err := service.ListTags(ctx)
	if err != nil {
		panic(err)
	}
	tagsDuration := time.Since(startTags)

	fmt.Println("Running ToggleFavorite x100...")
	startToggle := time.Now()
	for i := 0; i < 100 && i < len(list); i++ {
		if err := service.ToggleFavorite(ctx, list[i].ID); err != nil {
			panic(err)
		}
	}
	toggleDuration := time.Since(startToggle)

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d notes, %s):\n", *count, *adapter)
	fmt.Printf("  List:      %v (Items: %d)\n", listDuration, len(list))
	fmt.Printf("  ListTags:  %v (Tags: %d)\n", tagsDuration, len(tags))
	fmt.Printf("  Toggle:    %v\n", toggleDuration)
	fmt.Printf("--------------------------------------------------\n")
}
