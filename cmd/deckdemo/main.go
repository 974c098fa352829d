package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/deckworks/godeckcontent"
)

// sampleSlide describes one slide of the demo deck.
type sampleSlide struct {
	title   string
	body    string
	symbols []string
	icons   []string
}

var sampleDeck = []sampleSlide{
	{
		title:   "Autonomous Shuttle Overview",
		body:    "A friendly introduction to the automated shuttle platform",
		symbols: []string{"\U0001F41D", "\U0001F68C"},
	},
	{
		title: "How the Shuttle Drives",
		body:  "Sensor fusion and planning for driverless operation",
		icons: []string{"⚡", "\U0001F527"},
	},
	{
		title:   "Deployment Areas",
		body:    "Urban districts, campuses and exhibition grounds",
		symbols: []string{"\U0001F3D9", "♻", "\U0001F680"},
	},
	{
		title:   "Safety Systems",
		body:    "Redundant monitoring keeps every passenger protected",
		symbols: []string{"\U0001F6E1", "\U0001F4E1"},
		icons:   []string{"✓"},
	},
	{
		title:   "Sustainability",
		body:    "Efficient electric drive for a greener future",
		symbols: []string{"\U0001F331", "\U0001F30D"},
	},
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	store, err := deckcontent.NewStore(&deckcontent.StoreOptions{
		Title:  "Automated Shuttle Showcase",
		Author: "deckworks",
		Logger: logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "new store: %v\n", err)
		os.Exit(1)
	}

	for _, sample := range sampleDeck {
		id := store.CreateSlide(sample.title)

		if _, err := store.AddTextToSlide(id, sample.title, 100, 80, &deckcontent.TextOptions{
			FontSize:   36,
			FontWeight: "bold",
		}); err != nil {
			fmt.Fprintf(os.Stderr, "add title: %v\n", err)
			os.Exit(1)
		}
		if _, err := store.AddTextToSlide(id, sample.body, 100, 200, &deckcontent.TextOptions{
			FontSize: 18,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "add body: %v\n", err)
			os.Exit(1)
		}

		x := 600.0
		for _, symbol := range sample.symbols {
			if _, err := store.AddSymbolToSlide(id, symbol, x, 150, 48, nil); err != nil {
				fmt.Fprintf(os.Stderr, "add symbol: %v\n", err)
				os.Exit(1)
			}
			x += 100
		}
		for _, icon := range sample.icons {
			if _, err := store.AddIconToSlide(id, icon, x, 150, 40, nil); err != nil {
				fmt.Fprintf(os.Stderr, "add icon: %v\n", err)
				os.Exit(1)
			}
			x += 100
		}
	}

	savedPath, err := store.Save("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "save: %v\n", err)
		os.Exit(1)
	}

	yamlPath, err := store.ExportYAML("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "export yaml: %v\n", err)
		os.Exit(1)
	}

	stats := store.Statistics()
	fmt.Printf("Saved presentation to %s\n", savedPath)
	fmt.Printf("Exported YAML to %s\n", yamlPath)
	fmt.Printf("Slides: %d, elements: %d\n", stats.TotalSlides, stats.TotalElements)
	for t, count := range stats.ElementsByType {
		fmt.Printf("  %s: %d\n", t, count)
	}
}
