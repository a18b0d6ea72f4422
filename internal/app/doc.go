// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the command lifecycle: loading the domain
// configuration, reading graphs, running a command and recording metrics,
// decoupled from the command-line entrypoint.
package app
