// Command kvs-client sends one request to a kvs-server and prints its
// response with the same text and exit codes as the standalone kvs CLI
// for hits and misses (spec.md §7); a missing-key rm is reported on
// stderr rather than stdout.
package main

import (
	"fmt"
	"net"
	"os"

	"github.com/nilotpal/bitforge/internal/protocol"
	"github.com/nilotpal/bitforge/pkg/options"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	addr, rest := extractAddr(args)

	if len(rest) == 0 {
		usage()
		return -1
	}

	switch rest[0] {
	case "set":
		if len(rest) != 3 {
			usage()
			return -1
		}
		return send(addr, protocol.Command{Action: protocol.ActionSet, Key: rest[1], Value: rest[2]}, "set")
	case "get":
		if len(rest) != 2 {
			usage()
			return -1
		}
		return send(addr, protocol.Command{Action: protocol.ActionGet, Key: rest[1]}, "get")
	case "rm":
		if len(rest) != 2 {
			usage()
			return -1
		}
		return send(addr, protocol.Command{Action: protocol.ActionRM, Key: rest[1]}, "rm")
	default:
		usage()
		return -1
	}
}

// extractAddr pulls a --addr IP:PORT flag out of args wherever it appears,
// returning the resolved address and the remaining positional arguments.
func extractAddr(args []string) (string, []string) {
	addr := options.DefaultAddr
	rest := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		if args[i] == "--addr" && i+1 < len(args) {
			addr = args[i+1]
			i++
			continue
		}
		rest = append(rest, args[i])
	}

	return addr, rest
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: kvs-client [--addr IP:PORT] set <KEY> <VALUE> | get <KEY> | rm <KEY>")
}

func send(addr string, cmd protocol.Command, action string) int {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return -1
	}
	defer conn.Close()

	if err := protocol.WriteCommand(conn, cmd); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return -1
	}

	resp, err := protocol.ReadResponse(conn)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return -1
	}

	return render(action, resp)
}

// render prints resp and returns the process exit code. A get prints the
// value, or the server's error text ("Key not found" for a miss), on
// stdout and exits 0; a failed rm or set prints the server's error text on
// stderr and exits -1 (spec.md §7).
func render(action string, resp protocol.Response) int {
	switch action {
	case "get":
		if resp.IsErr() {
			fmt.Println(*resp.Err)
			return 0
		}
		if resp.Ok != nil {
			fmt.Println(*resp.Ok)
		}
		return 0

	case "rm":
		if resp.IsErr() {
			fmt.Fprintln(os.Stderr, *resp.Err)
			return -1
		}
		return 0

	default: // set
		if resp.IsErr() {
			fmt.Fprintln(os.Stderr, *resp.Err)
			return -1
		}
		return 0
	}
}
