// Command melodix runs the Melodix core against a mock playback transport:
// it loads the catalog, runs the reconciliation pass, and prints the resulting
// playlists and storage statistics. Platform frontends embed the same
// application graph with a real transport.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/melodix-app/melodix/internal/adapter/transport/mock"
	"github.com/melodix-app/melodix/internal/app"
	"github.com/melodix-app/melodix/internal/logger"
)

func main() {
	searchQuery := flag.String("search", "", "run a song search and print the results")
	flag.Parse()

	if err := run(*searchQuery); err != nil {
		fmt.Fprintln(os.Stderr, "melodix:", err)
		os.Exit(1)
	}
}

func run(searchQuery string) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}

	transport := mock.New(logger.NewLogger(logger.DefaultConfig()))
	application := app.New(cfg, transport)

	ctx := context.Background()
	if err := application.Init(ctx); err != nil {
		return err
	}
	defer func() {
		if cerr := application.Close(); cerr != nil {
			fmt.Fprintln(os.Stderr, "melodix: shutdown:", cerr)
		}
	}()

	if searchQuery != "" {
		results, err := application.Search.Search(ctx, searchQuery, cfg.SearchLimit)
		if err != nil {
			return err
		}
		for _, r := range results {
			fmt.Printf("%s - %s (%s)\n", r.Artist, r.Name, r.Duration.Round(time.Second))
		}
		return nil
	}

	for _, playlist := range application.Catalog.Playlists() {
		fmt.Printf("%s (%d songs)\n", playlist.Name, len(playlist.Songs))
		for i, song := range playlist.Songs {
			fmt.Printf("  %2d. %s - %s [%s]\n", i+1, song.Meta.Artist, song.Meta.DisplayName, song.Kind())
		}
	}

	stats, err := application.Catalog.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\n%d blobs, %s on disk\n", stats.BlobCount, stats.HumanSize())
	return nil
}
