//go:build ignore

package main

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
)

type snapshot struct {
	Nodes []struct {
		ID   uint32 `json:"id"`
		Mass uint8  `json:"mass"`
	} `json:"nodes"`
	Edges []struct {
		Source uint32  `json:"source"`
		Target uint32  `json:"target"`
		Weight float32 `json:"weight"`
	} `json:"edges"`
}

// Walks the snapshot archive and reports graph growth across rebuilds, so a
// long-running deployment can be checked for runaway edge counts.
func main() {
	root := "deploy/dogfood/snapshots"
	if len(os.Args) > 1 {
		root = os.Args[1]
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".json" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		fmt.Println("No snapshots found.")
		return
	}

	prevNodes, prevEdges := 0, 0
	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatal(err)
		}
		var s snapshot
		if err := json.Unmarshal(data, &s); err != nil {
			log.Fatalf("%s: %v", path, err)
		}

		var totalWeight float64
		for _, e := range s.Edges {
			totalWeight += float64(e.Weight)
		}

		fmt.Printf("%s: %d nodes, %d edges (weight %.1f)", filepath.Base(path), len(s.Nodes), len(s.Edges), totalWeight)
		if i > 0 {
			fmt.Printf("  [%+d nodes, %+d edges]", len(s.Nodes)-prevNodes, len(s.Edges)-prevEdges)
		}
		fmt.Println()
		prevNodes, prevEdges = len(s.Nodes), len(s.Edges)
	}
}
