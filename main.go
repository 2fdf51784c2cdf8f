// Package main is the entry point for the cscoach CLI tool, which analyses CS2 matches
// into contextual features, roles, mistakes, ratings and outcome predictions.
package main

import "github.com/pable/go-cs-coach/cmd"

func main() {
	cmd.Execute()
}
