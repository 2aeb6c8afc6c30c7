package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/toolhost/toolhost/pkg/config"
	"github.com/toolhost/toolhost/pkg/defaults"
	"github.com/toolhost/toolhost/pkg/mcpserver"
	"github.com/toolhost/toolhost/pkg/ui"
)

// runToolsets prints every available toolset and the tools it registers,
// by building a throwaway server with all toolsets enabled.
func runToolsets() {
	fs := flag.NewFlagSet("toolsets", flag.ExitOnError)
	selected := fs.String("toolsets", "all", "Comma-separated toolsets to show")
	noColor := fs.Bool("no-color", false, "Disable colored output")
	if err := fs.Parse(os.Args[2:]); err != nil {
		fatalf("%v", err)
	}
	ui.SetNoColor(*noColor)

	srv, err := mcpserver.New(&mcpserver.Config{
		Toolsets: config.SplitToolsets(*selected),
		RootDir:  os.TempDir(), // Listing only; nothing touches the filesystem.
	})
	if err != nil {
		fatalf("%v", err)
	}
	defer srv.Stop()

	fmt.Println(ui.Banner())
	fmt.Println()

	inventory := srv.ToolInventory()
	names := append(srv.EnabledToolsets(), "tasks")
	defaultSet := make(map[string]bool, len(defaults.ToolsetsDefault))
	for _, ts := range defaults.ToolsetsDefault {
		defaultSet[ts] = true
	}

	for _, ts := range names {
		label := ts
		switch {
		case ts == "tasks":
			label += "  (always on)"
		case defaultSet[ts]:
			label += "  (default)"
		}
		fmt.Println(ui.ToolsetStyle.Render(label))
		fmt.Printf("  %s\n\n", strings.Join(inventory[ts], ", "))
	}
}
