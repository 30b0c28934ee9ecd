// Command groundstation is the interactive bundle-injection tool: it
// loads a time-graph file for its address table, then repeatedly
// prompts for a message, origin, and destination and emits the
// resulting bundle over UDP to the origin node's transport address.
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/asgard/cgrsat/internal/platform/dtn"
	"github.com/asgard/cgrsat/pkg/bundle"
)

const usage = "usage: groundstation <time_graph_path>"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout))
}

func run(args []string, stdin *os.File, stdout *os.File) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}

	timeGraphPath := resolveTimeGraphPath(args[0])
	data, err := os.ReadFile(timeGraphPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading time graph file %s: %v\n", timeGraphPath, err)
		return 2
	}

	table, err := dtn.LoadRouteTable(data, dtn.DefaultPathBounds())
	if err != nil {
		fmt.Fprintf(os.Stderr, "parsing time graph file: %v\n", err)
		return 2
	}

	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening send socket: %v\n", err)
		return 2
	}
	defer conn.Close()

	interrupted := make(chan os.Signal, 1)
	signal.Notify(interrupted, syscall.SIGINT, syscall.SIGTERM)

	scanner := bufio.NewScanner(stdin)
	for {
		select {
		case <-interrupted:
			fmt.Fprintln(stdout, "\nProgram Finished")
			return 0
		default:
		}

		message, ok := prompt(scanner, stdout, "Message to send: ")
		if !ok {
			fmt.Fprintln(stdout, "\nProgram Finished")
			return 0
		}
		origin, ok := prompt(scanner, stdout, "First node that starts the transmission: ")
		if !ok {
			fmt.Fprintln(stdout, "\nProgram Finished")
			return 0
		}
		destination, ok := prompt(scanner, stdout, "Destination node of the message: ")
		if !ok {
			fmt.Fprintln(stdout, "\nProgram Finished")
			return 0
		}

		if err := sendBundle(conn, table, message, origin, destination); err != nil {
			fmt.Fprintf(stdout, "could not send message: %v\n", err)
			continue
		}
		fmt.Fprintf(stdout, "Message: %s sent to %s with destination %s\n", message, origin, destination)
	}
}

func sendBundle(conn *net.UDPConn, table *dtn.RouteTable, message, origin, destination string) error {
	addr, ok := table.Address(origin)
	if !ok {
		return fmt.Errorf("no known address for origin node %s", origin)
	}

	b := bundle.New(origin, destination, []byte(message), 1)
	wire, err := bundle.Encode(b)
	if err != nil {
		return err
	}
	fmt.Println(wire)

	udpAddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", addr.Host, addr.Port))
	if err != nil {
		return err
	}
	_, err = conn.WriteToUDP([]byte(wire), udpAddr)
	return err
}

func prompt(scanner *bufio.Scanner, stdout *os.File, label string) (string, bool) {
	fmt.Fprint(stdout, label)
	if !scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(scanner.Text()), true
}

// resolveTimeGraphPath mirrors dtnnode's resolution: a bare filename is
// looked up under a time_graphs/ directory adjacent to the binary.
func resolveTimeGraphPath(arg string) string {
	if filepath.IsAbs(arg) || filepath.Dir(arg) != "." {
		return arg
	}
	exe, err := os.Executable()
	if err != nil {
		return filepath.Join("time_graphs", arg)
	}
	return filepath.Join(filepath.Dir(exe), "time_graphs", arg)
}
