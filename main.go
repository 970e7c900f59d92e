package main

import (
	"fmt"
	"io"
	"os"
)

const (
	Version = "v0.01.00"
	License = "Apache-2.0"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(argv []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(argv) == 0 {
		return runChat(nil, stdin, stdout, stderr)
	}

	cmd, args := argv[0], argv[1:]
	switch cmd {
	case "help", "-h", "--help":
		writeHelp(stdout)
		return exitOK
	case "version", "--version":
		fmt.Fprintf(stdout, "chatcore %s (%s)\n", Version, License)
		return exitOK
	case "chat":
		return runChat(args, stdin, stdout, stderr)
	case "chats":
		return runChats(args, stdout, stderr)
	case "delete":
		return runDelete(args, stdout, stderr)
	case "search":
		return runSearch(args, stdout, stderr)
	case "models":
		return runModels(args, stdout, stderr)
	case "verify":
		return runVerify(args, stdout, stderr)
	case "set":
		return runSet(args, stdout, stderr)
	case "mcp":
		return runMCP(args, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
		writeHelp(stderr)
		return exitUsage
	}
}

func writeHelp(w io.Writer) {
	fmt.Fprint(w, `Usage: chatcore <command> [arguments]

Commands:
  chat [-id CHAT]     Interactive chat (default). /new starts a chat, /quit exits.
  chats               List chats, most recently used first.
  delete ID           Delete a chat and its messages.
  search QUERY        Search messages across all chats.
  models              List the models of every configured provider.
  verify              Check the credential of the active provider.
  set KEY VALUE       Change a setting. *-Token and Plugin-* keys go to the
                      credential store.
  mcp                 Serve the built-in tools over MCP on stdio.
  version             Print the version.
`)
}
