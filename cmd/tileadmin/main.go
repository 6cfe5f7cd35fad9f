package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tilecraft.ai/internal/tileset/tilemap"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "lookup":
			lookupCmd(os.Args[2:])
			return
		case "resolve":
			resolveCmd(os.Args[2:])
			return
		case "map":
			mapCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("tileadmin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	entries, err := os.ReadDir(filepath.Join(*dataDir, "runs"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		if e.IsDir() {
			fmt.Println(e.Name())
		}
	}
}

func mapCmd(args []string) {
	fs := flag.NewFlagSet("map", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	runID := fs.String("run", "run_1", "run id")
	_ = fs.Parse(args)

	m, err := tilemap.Read(filepath.Join(*dataDir, "runs", *runID, "map.json"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read map:", err)
		os.Exit(1)
	}
	grid, err := m.Grid()
	if err != nil {
		fmt.Fprintln(os.Stderr, "decode map:", err)
		os.Exit(1)
	}
	fmt.Printf("tileset=%s set=%q seed=%d %dx%d\n", m.Tileset, m.Set, m.Seed, m.Width, m.Height)
	for _, row := range grid {
		cells := make([]string, len(row))
		for i, id := range row {
			cells[i] = fmt.Sprintf("%4d", id)
		}
		fmt.Println(strings.Join(cells, ""))
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
