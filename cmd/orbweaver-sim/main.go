package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rmax-ai/orbweaver/pkg/simulation"
)

func main() {
	var (
		scenarioFile string
		nodes        int
		edges        int
		ticks        int
		seed         int64
		jsonOutput   bool
		outputFile   string
	)

	flag.StringVar(&scenarioFile, "scenario", "", "Path to scenario JSON file")
	flag.IntVar(&nodes, "nodes", 200, "Synthetic graph node count")
	flag.IntVar(&edges, "edges", 400, "Synthetic graph edge count")
	flag.IntVar(&ticks, "ticks", 500, "Number of physics ticks to run")
	flag.Int64Var(&seed, "seed", 0, "Deterministic RNG seed (0 picks one)")
	flag.BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	flag.StringVar(&outputFile, "out", "", "Write output to file instead of stdout")
	flag.Parse()

	var scenario simulation.Scenario

	if scenarioFile != "" {
		data, err := os.ReadFile(scenarioFile)
		if err != nil {
			log.Fatalf("Failed to read scenario file: %v", err)
		}
		if err := json.Unmarshal(data, &scenario); err != nil {
			log.Fatalf("Failed to parse scenario file: %v", err)
		}
	} else {
		fmt.Fprintln(os.Stderr, "No scenario file provided, running synthetic soak...")
		scenario = simulation.Scenario{
			Name:  "synthetic-soak",
			Nodes: nodes,
			Edges: edges,
			Ticks: ticks,
			Seed:  seed,
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result := simulation.Run(ctx, scenario)

	writeReport(result, jsonOutput, outputFile)

	if !result.Success {
		os.Exit(1)
	}
}

func writeReport(res simulation.Result, jsonFmt bool, filePath string) {
	var output []byte
	var err error

	if jsonFmt {
		output, err = json.MarshalIndent(res, "", "  ")
	} else {
		var buf bytes.Buffer
		buf.WriteString(fmt.Sprintf("\n--- Soak Report: %s (seed %d) ---\n", res.ScenarioName, res.Seed))
		buf.WriteString(fmt.Sprintf("Ticks: %d in %s (mean %.1fus/tick)\n", res.Ticks, res.Duration, res.MeanTickMicros))
		buf.WriteString(fmt.Sprintf("Final kinetic energy: %.4f\n", res.FinalEnergy))

		if len(res.Samples) > 0 {
			first := res.Samples[0]
			last := res.Samples[len(res.Samples)-1]
			buf.WriteString(fmt.Sprintf("Displacement: %.3f (tick %d) -> %.3f (tick %d)\n",
				first.Displacement, first.Tick, last.Displacement, last.Tick))
		}

		if len(res.Invariants) > 0 {
			buf.WriteString("\nInvariants:\n")
			for _, inv := range res.Invariants {
				status := "FAIL"
				if inv.Passed {
					status = "PASS"
				}
				buf.WriteString(fmt.Sprintf("[%s] %s", status, inv.Name))
				if inv.Details != "" {
					buf.WriteString(": " + inv.Details)
				}
				buf.WriteString("\n")
			}
		}
		output = buf.Bytes()
	}

	if err != nil {
		log.Fatalf("Failed to marshal report: %v", err)
	}

	if filePath != "" {
		if err := os.WriteFile(filePath, output, 0644); err != nil {
			log.Fatalf("Failed to write report to %s: %v", filePath, err)
		}
		fmt.Printf("Report written to %s\n", filePath)
	} else {
		fmt.Println(string(output))
	}
}
