// Command kvs-client talks to a kvs-server over TCP: one-shot get/set/rm
// subcommands, or an interactive repl subcommand for back-to-back
// commands against the same connection.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/pflag"

	"github.com/go-kvsdb/kvsdb/internal/client"
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

	sub, rest := args[0], args[1:]
	switch sub {
	case "get", "set", "rm":
		return runOnce(sub, rest)
	case "repl":
		return runRepl(rest)
	default:
		usage()
		return 1
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: kvs-client <get|set|rm|repl> [-a addr] [key] [value]")
}

func runOnce(sub string, args []string) int {
	fs := pflag.NewFlagSet(sub, pflag.ContinueOnError)
	addr := fs.StringP("addr", "a", "127.0.0.1:4000", "server address")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	positional := fs.Args()

	c, err := client.Dial(*addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kvs-client: %v\n", err)
		return 1
	}
	defer c.Close()

	switch sub {
	case "set":
		if len(positional) != 2 {
			fmt.Fprintln(os.Stderr, "kvs-client: set requires KEY and VALUE")
			return 1
		}
		if err := c.Set(positional[0], positional[1]); err != nil {
			fmt.Fprintf(os.Stderr, "kvs-client: %v\n", err)
			return 1
		}
	case "get":
		if len(positional) != 1 {
			fmt.Fprintln(os.Stderr, "kvs-client: get requires KEY")
			return 1
		}
		value, found, err := c.Get(positional[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "kvs-client: %v\n", err)
			return 1
		}
		if !found {
			fmt.Println("Key not found")
		} else {
			fmt.Println(value)
		}
	case "rm":
		if len(positional) != 1 {
			fmt.Fprintln(os.Stderr, "kvs-client: rm requires KEY")
			return 1
		}
		if err := c.Remove(positional[0]); err != nil {
			if errors.Is(err, engine.ErrRecordNotFound) {
				fmt.Fprintln(os.Stderr, "Key not found")
			} else {
				fmt.Fprintf(os.Stderr, "kvs-client: %v\n", err)
			}
			return 1
		}
	}
	return 0
}

// runRepl opens one connection and reads set/get/rm commands from an
// interactive readline prompt until EOF or "exit".
func runRepl(args []string) int {
	fs := pflag.NewFlagSet("repl", pflag.ContinueOnError)
	addr := fs.StringP("addr", "a", "127.0.0.1:4000", "server address")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	c, err := client.Dial(*addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kvs-client: %v\n", err)
		return 1
	}
	defer c.Close()

	rl, err := readline.New(fmt.Sprintf("kvs(%s)> ", *addr))
	if err != nil {
		fmt.Fprintf(os.Stderr, "kvs-client: %v\n", err)
		return 1
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			return 0
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "exit", "quit":
			return 0
		case "get":
			if len(fields) != 2 {
				fmt.Println("usage: get KEY")
				continue
			}
			value, found, err := c.Get(fields[1])
			if err != nil {
				fmt.Println(err)
			} else if !found {
				fmt.Println("Key not found")
			} else {
				fmt.Println(value)
			}
		case "set":
			if len(fields) != 3 {
				fmt.Println("usage: set KEY VALUE")
				continue
			}
			if err := c.Set(fields[1], fields[2]); err != nil {
				fmt.Println(err)
			}
		case "rm":
			if len(fields) != 2 {
				fmt.Println("usage: rm KEY")
				continue
			}
			if err := c.Remove(fields[1]); err != nil {
				if errors.Is(err, engine.ErrRecordNotFound) {
					fmt.Fprintln(os.Stderr, "Key not found")
				} else {
					fmt.Fprintln(os.Stderr, err)
				}
			}
		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
}
