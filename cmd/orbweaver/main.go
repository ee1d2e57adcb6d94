package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rmax-ai/orbweaver/pkg/client"
	"github.com/rmax-ai/orbweaver/pkg/mcp"
	"github.com/rmax-ai/orbweaver/pkg/metadata"
	"github.com/rmax-ai/orbweaver/pkg/protocol"
)

var (
	Version   = "v0.3.0"
	Commit    = "unknown"
	BuildTime = "unknown"
)

const usage = `Usage: orbweaver <command> [args]

Commands:
  ingest <dir> [metadata.json]   scan a markdown directory into a metadata file
  rebuild                        rebuild the graph from the metadata store
  status                         daemon health and simulation diagnostics
  export <json|csv> [file]       export the full graph
  watch                          stream live position frames and print stats
  mcp                            serve the MCP interface on stdio

The daemon endpoint defaults to http://127.0.0.1:8090; override with
ORBWEAVER_ENDPOINT.`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	endpoint := os.Getenv("ORBWEAVER_ENDPOINT")
	c := client.NewClient(endpoint)
	ctx := context.Background()

	var err error
	switch os.Args[1] {
	case "ingest":
		err = runIngest(os.Args[2:])
	case "rebuild":
		err = runRebuild(ctx, c)
	case "status":
		err = runStatus(ctx, c)
	case "export":
		err = runExport(ctx, c, os.Args[2:])
	case "watch":
		err = runWatch(c)
	case "mcp":
		err = mcp.NewServer(endpoint).Serve()
	case "version":
		fmt.Printf("orbweaver %s (%s, built %s)\n", Version, Commit, BuildTime)
	default:
		fmt.Println(usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func runIngest(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: orbweaver ingest <dir> [metadata.json]")
	}
	out := "metadata.json"
	if len(args) > 1 {
		out = args[1]
	}

	records, err := metadata.ScanDirectory(args[0])
	if err != nil {
		return err
	}

	store := metadata.NewJSONStore(out)
	if err := store.Save(records); err != nil {
		return err
	}

	fmt.Printf("Ingested %d files into %s\n", len(records), out)
	return nil
}

func runRebuild(ctx context.Context, c *client.Client) error {
	res, err := c.Rebuild(ctx)
	if errors.Is(err, client.ErrRebuildInProgress) {
		fmt.Println("A rebuild is already running; try again shortly.")
		return nil
	}
	if err != nil {
		return daemonError(err)
	}
	fmt.Printf("Graph rebuilt: %d nodes, %d edges\n", res.Nodes, res.Edges)
	return nil
}

func runStatus(ctx context.Context, c *client.Client) error {
	health, err := c.Health(ctx)
	if err != nil {
		return daemonError(err)
	}
	fmt.Printf("Daemon:  %s (version %s, up %ds)\n", health.Status, health.Version, health.UptimeSeconds)

	page, err := c.GraphPage(ctx, 0, 1)
	if err != nil {
		return err
	}
	fmt.Printf("Graph:   %d nodes, %d edges\n", page.TotalNodes, page.TotalEdges)

	diag, err := c.Diagnostics(ctx)
	if err != nil {
		fmt.Println("Physics: no simulation instance")
		return nil
	}
	if !diag.Available {
		fmt.Println("Physics: state unavailable (instance busy)")
		return nil
	}
	fmt.Printf("Physics: instance %s active=%v running=%v accelerator=%v\n",
		diag.InstanceID, diag.IsActive, diag.Running, diag.AcceleratorPresent)
	return nil
}

func runExport(ctx context.Context, c *client.Client, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: orbweaver export <json|csv> [file]")
	}
	format := args[0]

	out := os.Stdout
	if len(args) > 1 {
		f, err := os.Create(args[1])
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	if err := c.Export(ctx, format, out); err != nil {
		return daemonError(err)
	}
	if len(args) > 1 {
		fmt.Printf("Exported graph to %s\n", args[1])
	}
	return nil
}

func runWatch(c *client.Client) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("Streaming position frames (Ctrl-C to stop)...")
	frames := 0
	err := c.StreamFrames(ctx, func(nodes []protocol.WireNode) error {
		frames++
		fmt.Printf("\rframe %d: %d nodes", frames, len(nodes))
		return nil
	})
	fmt.Println()
	if errors.Is(err, context.Canceled) {
		fmt.Printf("Stopped after %d frames\n", frames)
		return nil
	}
	return err
}

func daemonError(err error) error {
	return fmt.Errorf("%w\nIs orbweaver-d running?", err)
}
