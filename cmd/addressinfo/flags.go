package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

type cliConfig struct {
	addressArgs []string
	jsonOutput  bool
	arrayOutput bool
	outputMode  string
	echoCount   int // 0 means unset, config value applies
	timeoutMS   int
	workers     int
	configPath  string
	logLevel    string
	distance    bool
	showHelp    bool
	showVersion bool
}

// parseFlags parses command-line arguments manually to support GNU-style long flags
func parseFlags(args []string) (*cliConfig, error) {
	cfg := &cliConfig{}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch {
		case arg == "-h" || arg == "--help":
			cfg.showHelp = true
			return cfg, nil

		case arg == "-v" || arg == "--version":
			cfg.showVersion = true
			return cfg, nil

		case arg == "-j" || arg == "--json":
			cfg.jsonOutput = true

		case arg == "-a" || arg == "--array":
			cfg.arrayOutput = true

		case arg == "-d" || arg == "--distance":
			cfg.distance = true

		case arg == "-o" || arg == "--output":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%s requires an argument", arg)
			}
			i++
			cfg.outputMode = args[i]

		case arg == "-c" || arg == "--count":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%s requires an argument", arg)
			}
			i++
			count, err := strconv.Atoi(args[i])
			if err != nil {
				return nil, fmt.Errorf("invalid count value: %s", args[i])
			}
			if count < 1 || count > 100 {
				return nil, fmt.Errorf("count must be between 1 and 100")
			}
			cfg.echoCount = count

		case arg == "-t" || arg == "--timeout":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%s requires an argument", arg)
			}
			i++
			timeout, err := strconv.Atoi(args[i])
			if err != nil {
				return nil, fmt.Errorf("invalid timeout value: %s", args[i])
			}
			if timeout < 100 || timeout > 30000 {
				return nil, fmt.Errorf("timeout must be between 100 and 30000")
			}
			cfg.timeoutMS = timeout

		case arg == "-w" || arg == "--workers":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%s requires an argument", arg)
			}
			i++
			workers, err := strconv.Atoi(args[i])
			if err != nil {
				return nil, fmt.Errorf("invalid workers value: %s", args[i])
			}
			if workers < 1 || workers > 64 {
				return nil, fmt.Errorf("workers must be between 1 and 64")
			}
			cfg.workers = workers

		case arg == "-f" || arg == "--config":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%s requires an argument", arg)
			}
			i++
			cfg.configPath = args[i]

		case arg == "-l" || arg == "--log-level":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%s requires an argument", arg)
			}
			i++
			cfg.logLevel = args[i]

		case arg == "-":
			// Explicit stdin marker
			cfg.addressArgs = append(cfg.addressArgs, "-")

		case strings.HasPrefix(arg, "-"):
			return nil, fmt.Errorf("unknown flag: %s", arg)

		default:
			cfg.addressArgs = append(cfg.addressArgs, arg)
		}
	}

	return cfg, nil
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintf(w, `addressinfo %s

Produce a consolidated diagnostic report for public IP addresses: latency,
hop count, ISP/ASN ownership, geolocation, local time and current weather.

USAGE:
    addressinfo [OPTIONS] ADDRESS [ADDRESS...]
    addressinfo [OPTIONS] ADDR1,ADDR2,...
    addressinfo [OPTIONS] -          (read addresses from stdin)

OPTIONS:
    -o, --output MODE           Output mode: text, json or array (default: text)
    -j, --json                  Output the batch as a JSON array (same as -o json)
    -a, --array                 Output the raw report values, one per line (same as -o array)
    -c, --count N               Echo requests per latency measurement (default: 10, range: 1-100)
    -t, --timeout MS            Per-call timeout in milliseconds (default: 2000, range: 100-30000)
    -w, --workers COUNT         Concurrent address pipelines (default: 4, range: 1-64)
    -d, --distance              Include distance from your location in each report
    -f, --config PATH           Path to a YAML config file
    -l, --log-level LEVEL       Log level: debug, info, warning, error (default: error)
    -h, --help                  Show this help message
    -v, --version               Show version information

EXAMPLES:
    addressinfo 8.8.8.8
    addressinfo --json 8.8.8.8,8.8.4.4 1.1.1.1
    addressinfo -d -l debug 8.8.8.8
    echo 8.8.8.8 | addressinfo -

NOTE:
    Route tracing requires CAP_NET_RAW capability or root privileges.
    On Linux, you can grant the capability with:
        sudo setcap cap_net_raw+ep /path/to/addressinfo
`, Version)
}
