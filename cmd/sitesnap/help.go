package main

import (
	"fmt"
	"io"
)

// printUsage prints the usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: sitesnap [flags] [input] [output-base]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Screenshot every website of a worklist and collect the results into")
	fmt.Fprintln(w, "paginated documents. Unreachable sites get a \"404 Not Found\" placeholder.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  input          Worklist, .xlsx or .csv (default: list.xlsx)")
	fmt.Fprintln(w, "  output-base    Page document base name (default: screenshots)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "General:")
	fmt.Fprintln(w, "  -c, --config <name>          Config file name or path")
	fmt.Fprintln(w, "  -q, --quiet                  Only show errors")
	fmt.Fprintln(w, "  -v, --verbose                Debug logging and per-record timing")
	fmt.Fprintln(w, "      --version                Print version and exit")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input:")
	fmt.Fprintln(w, "  -i, --input <path>           Worklist file")
	fmt.Fprintln(w, "  -s, --sheet <name>           Worksheet (default: sheet1, else the first)")
	fmt.Fprintln(w, "      --index-column <s>       Index header (default: 序号)")
	fmt.Fprintln(w, "      --name-column <s>        Name header (default: 网站名称)")
	fmt.Fprintln(w, "      --address-column <s>     Address header (default: 网站域名)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output:")
	fmt.Fprintln(w, "  -d, --output-dir <dir>       Directory for page documents")
	fmt.Fprintln(w, "  -o, --output <name>          Page document base name")
	fmt.Fprintln(w, "      --screenshot-dir <dir>   Screenshot directory (default: screenshots)")
	fmt.Fprintln(w, "  -p, --page-size <n>          Entries per page document (default: 100)")
	fmt.Fprintln(w, "      --pdf                    Also export touched pages to PDF")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Capture:")
	fmt.Fprintln(w, "  -w, --workers <n>            Concurrent browsers (default: 5)")
	fmt.Fprintln(w, "  -r, --retries <n>            Attempts per site (default: 3)")
	fmt.Fprintln(w, "  -t, --timeout <d>            Page load timeout (default: 30s)")
	fmt.Fprintln(w, "      --ready-timeout <d>      Readiness wait (default: 10s)")
	fmt.Fprintln(w, "      --width <px>             Viewport width (default: 800)")
	fmt.Fprintln(w, "      --height <px>            Viewport height (default: 600)")
	fmt.Fprintln(w, "      --queue-size <n>         Submission queue bound (0 = whole worklist)")
	fmt.Fprintln(w, "      --rate <f>               Sites started per second (0 = unlimited)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Browser:")
	fmt.Fprintln(w, "      --browser-bin <path>     Chrome binary (or ROD_BROWSER_BIN)")
	fmt.Fprintln(w, "      --no-sandbox             Disable the Chrome sandbox")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Logging:")
	fmt.Fprintln(w, "      --log-level <s>          debug, info, warn, error")
	fmt.Fprintln(w, "      --log-file[=<path>]      Also append JSON logs to a file (default: sitesnap.log)")
	fmt.Fprintln(w, "      --log-json               JSON console logs")
	fmt.Fprintln(w, "      --metrics-file <path>    Write Prometheus metrics (textfile format)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Exit codes:")
	fmt.Fprintln(w, "  0 success, 1 general, 2 usage/config, 3 input/output, 4 browser")
}
