// Package cli parses the devdag command line into an app.Config. Flags may
// appear before or after the command; Neo4j and notification settings
// default to their DEVDAG_* environment variables. Usage errors carry exit
// code 2.
package cli
