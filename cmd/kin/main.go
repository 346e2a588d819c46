package main

import (
	"fmt"
	"os"

	"github.com/hpungsan/kin/internal/config"
	"github.com/hpungsan/kin/internal/db"
	"github.com/hpungsan/kin/internal/logging"
	"github.com/hpungsan/kin/internal/mcp"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"next": true, "engage": true,
	"counters": true, "stats": true,
	"export": true, "import": true,
	"serve": true, "widget": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode(args []string) bool {
	if len(args) < 2 {
		return false
	}
	arg := args[1]
	if cliCommands[arg] {
		return true
	}
	return isHelpOrVersion(args)
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion(args []string) bool {
	if len(args) < 2 {
		return false
	}
	arg := args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

func printBanner() {
	fmt.Println(`
   _    _
  | | _(_)_ __
  | |/ / | '_ \
  |   <| | | | |
  |_|\_\_|_| |_|

  Keep in touch with the people in your address book

  Usage: kin <command> [options]
         kin --help

  MCP server mode requires piped input.`)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Help and version need no database.
	if isHelpOrVersion(os.Args) {
		if err := newCLIApp(nil).Run(os.Args); err != nil {
			fatal("%v", err)
		}
		return
	}

	baseDir, err := config.DefaultBaseDir()
	if err != nil {
		fatal("could not determine home directory: %v", err)
	}

	cwd, _ := os.Getwd()
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fatal("failed to load config: %v", err)
	}

	logger, err := logging.FromConfig(cfg)
	if err != nil {
		fatal("invalid logging config: %v", err)
	}

	database, err := db.Init(baseDir)
	if err != nil {
		fatal("failed to initialize database: %v", err)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	rt := newRuntime(database, cfg, logger)

	if isCLIMode(os.Args) {
		if err := newCLIApp(rt).Run(os.Args); err != nil {
			fmt.Fprintln(os.Stderr, err)
			database.Close()
			os.Exit(1)
		}
		return
	}

	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'kin --help' for usage.\n")
		database.Close()
		os.Exit(1)
	}

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn("unknown tools in disabled_tools", "tools", unknown)
	}
	if unknown := mcp.ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		logger.Warn("unknown types in disabled_types", "types", unknown)
	}

	if err := mcp.Run(rt.mcpDeps(), Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		database.Close()
		os.Exit(1)
	}
}
