// Command kvs is a standalone, single-process key-value store: every
// invocation opens the engine in the current working directory, performs
// one operation, and closes it again. There is no server involved.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nilotpal/bitforge/pkg/kv"
	"github.com/nilotpal/bitforge/pkg/kverrors"
	"github.com/nilotpal/bitforge/pkg/options"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return -1
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return -1
	}

	switch args[0] {
	case "set":
		if len(args) != 3 {
			usage()
			return -1
		}
		return runSet(cwd, args[1], args[2])
	case "get":
		if len(args) != 2 {
			usage()
			return -1
		}
		return runGet(cwd, args[1])
	case "rm":
		if len(args) != 2 {
			usage()
			return -1
		}
		return runRemove(cwd, args[1])
	default:
		usage()
		return -1
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: kvs set <KEY> <VALUE> | kvs get <KEY> | kvs rm <KEY>")
}

func openEngine(dataDir string) (kv.Engine, error) {
	return kv.New(context.Background(), "kvs", options.WithDataDir(dataDir))
}

func runSet(dataDir, key, value string) int {
	e, err := openEngine(dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return -1
	}
	defer e.Close()

	if err := e.Set(key, value); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return -1
	}
	return 0
}

func runGet(dataDir, key string) int {
	e, err := openEngine(dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return -1
	}
	defer e.Close()

	value, found, err := e.Get(key)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return -1
	}
	if !found {
		fmt.Println("Key not found")
		return 0
	}

	fmt.Println(value)
	return 0
}

func runRemove(dataDir, key string) int {
	e, err := openEngine(dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return -1
	}
	defer e.Close()

	if err := e.Remove(key); err != nil {
		if kverrors.IsKeyNotFound(err) {
			fmt.Println("Key not found")
			return -1
		}
		fmt.Fprintln(os.Stderr, err)
		return -1
	}
	return 0
}
