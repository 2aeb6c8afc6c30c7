// Command toolhost is the entry point for the Toolhost MCP server: it
// exposes a machine's filesystem, shell, system metrics, git/GitHub, and
// media player to MCP clients, grouped into operator-selectable toolsets.
package main

import (
	"fmt"
	"os"

	"github.com/toolhost/toolhost/pkg/defaults"
	"github.com/toolhost/toolhost/pkg/ui"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "mcp":
		runMCP()
	case "toolsets":
		runToolsets()
	case "version", "--version", "-v":
		fmt.Printf("%s %s (commit %s, built %s)\n", defaults.ToolName, defaults.Version, ui.Commit, ui.BuildDate)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}
}

func printUsage() {
	fmt.Println(ui.Banner())
	fmt.Println()
	fmt.Println(ui.SectionStyle.Render("USAGE"))
	fmt.Printf("  %s <command> [flags]\n\n", defaults.ToolName)
	fmt.Println(ui.SectionStyle.Render("COMMANDS"))
	fmt.Printf("  %s       Start the MCP server (stdio or HTTP transport)\n", ui.CommandStyle.Render("mcp"))
	fmt.Printf("  %s  List the available toolsets and their tools\n", ui.CommandStyle.Render("toolsets"))
	fmt.Printf("  %s   Print version information\n", ui.CommandStyle.Render("version"))
	fmt.Printf("  %s      Show this help\n", ui.CommandStyle.Render("help"))
	fmt.Println()
	fmt.Println(ui.SectionStyle.Render("EXAMPLES"))
	fmt.Printf("  %s\n", ui.CommandStyle.Render("toolhost mcp --stdio"))
	fmt.Printf("  %s\n", ui.CommandStyle.Render("toolhost mcp --http :8080 --toolsets fs,shell,system"))
	fmt.Printf("  %s\n", ui.CommandStyle.Render("TOOLHOST_ROOT=/srv/data toolhost mcp --http :8080"))
	fmt.Println()
}
