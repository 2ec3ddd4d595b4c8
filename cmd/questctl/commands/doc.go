// Package commands defines the questctl CLI, a terminal client for the
// Fruity Tales intake server.
//
// Commands
//
//   - subscribe   Submit one signup the way the hero or demo page form does
//   - quest       Walk the steam, kickstarter and email quest interactively
//
// The root command builds the HTTP intake client once, before any subcommand
// runs, from --intake-url (or INTAKE_URL) and --timeout.
package commands
