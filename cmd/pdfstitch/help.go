package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: pdfstitch <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  convert    Stitch documents into one tall image")
	fmt.Fprintln(w, "  serve      Run the HTTP API")
	fmt.Fprintln(w, "  doctor     Check render engines and system setup")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'pdfstitch help <command>' for details on a specific command.")
}

// printConvertUsage prints usage for the convert command.
func printConvertUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: pdfstitch convert <input...> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render every page and stack the pages vertically into one image.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  input    PDF, Markdown or HTML file, a directory of them, or an http(s) URL")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "  -o, --output <path>       Output image (single input) or directory")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -w, --workers <n>         Documents in parallel (0 = auto)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Image:")
	fmt.Fprintln(w, "  -f, --format <s>          png (default) or jpg")
	fmt.Fprintln(w, "  -r, --resolution <n>      Render density in DPI (default 300)")
	fmt.Fprintln(w, "  -q, --quality <n>         JPEG quality 1-100 (default 100)")
	fmt.Fprintln(w, "      --resize <s>          proportional (default) or stretch")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Rendering:")
	fmt.Fprintln(w, "  -e, --engine <name>       poppler, mupdf, ghostscript (repeatable, in order)")
	fmt.Fprintln(w, "  -t, --timeout <d>         Per-engine timeout (e.g., 30s, 2m)")
	fmt.Fprintln(w, "      --keep-workspace      Keep page files for inspection")
	fmt.Fprintln(w, "      --work-dir <path>     Parent of temporary workspaces")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Markdown/HTML:")
	fmt.Fprintln(w, "  -p, --page-size <s>       letter, a4, legal")
	fmt.Fprintln(w, "      --margin <f>          Margin in inches (0-3)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "      --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show engine fallbacks and timing")
}

// printServeUsage prints usage for the serve command.
func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: pdfstitch serve [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Serve POST /stitch. Results are published to the configured storage.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "      --addr <addr>         Listen address (default :5000)")
	fmt.Fprintln(w, "  -w, --workers <n>         Concurrent conversions (0 = auto)")
	fmt.Fprintln(w, "  -t, --timeout <d>         Per-engine timeout")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "      --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Log every request")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	switch args[0] {
	case "convert":
		printConvertUsage(env.Stdout)
	case "serve":
		printServeUsage(env.Stdout)
	case "doctor":
		fmt.Fprintln(env.Stdout, "Usage: pdfstitch doctor [--json]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Report render engines, Chrome and temp directory status.")
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: pdfstitch version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: pdfstitch help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}
