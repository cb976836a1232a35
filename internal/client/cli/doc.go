// Package cli provides the KitKeeper command-line client.
//
// With command words on the command line it runs one command and exits:
//
//	kitkeeper-cli -t <token> claim starter
//	kitkeeper-cli -t <token> list
//	kitkeeper-cli -t <token> admin setcooldown starter 1h
//
// Without them it starts a REPL that accepts the same commands.
package cli
