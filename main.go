// Package main is the entry point for the loadpath CLI.
package main

import "loadpath.dev/pkg/loadpath/cmd"

func main() {
	cmd.Execute()
}
