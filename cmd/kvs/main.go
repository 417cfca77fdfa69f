// Command kvs operates directly on a log-structured store rooted at
// the current directory, with no server involved — the embedded-use
// path from §6.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-kvsdb/kvsdb/internal/engine"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return 1
	}

	dir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "kvs: %v\n", err)
		return 1
	}

	store, err := engine.Open(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kvs: %v\n", err)
		return 1
	}
	defer store.Shutdown()

	switch sub, rest := args[0], args[1:]; sub {
	case "set":
		if len(rest) != 2 {
			fmt.Fprintln(os.Stderr, "kvs: set requires KEY and VALUE")
			return 1
		}
		if err := store.Set(rest[0], rest[1]); err != nil {
			fmt.Fprintf(os.Stderr, "err: %v\n", err)
		}
		return 0

	case "get":
		if len(rest) != 1 {
			fmt.Fprintln(os.Stderr, "kvs: get requires KEY")
			return 1
		}
		value, found, err := store.Get(rest[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 0
		}
		if !found {
			fmt.Println("Key not found")
		} else {
			fmt.Println(value)
		}
		return 0

	case "rm":
		if len(rest) != 1 {
			fmt.Fprintln(os.Stderr, "kvs: rm requires KEY")
			return 1
		}
		if err := store.Remove(rest[0]); err != nil {
			if errors.Is(err, engine.ErrRecordNotFound) {
				fmt.Println("Key not found")
			} else {
				fmt.Fprintf(os.Stderr, "%v\n", err)
			}
			return 1
		}
		return 0

	default:
		usage()
		return 1
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: kvs <set|get|rm> [key] [value]")
}
