// Package main is the entry point for the chatta-setup wizard.
package main

import "github.com/chatta-voice/chatta-setup/internal/app"

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/chatta-setup
var version = "dev"

func main() {
	app.SetVersion(version)
	app.Execute()
}
