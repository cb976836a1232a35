// Package flagx lets several components share one command line. Each
// component defines its own flag.FlagSet and parses only the arguments that
// belong to it, so the server config, the JSON config selector and the CLI
// command words do not trip over each other.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// boolFlag matches the values flag treats as switches.
type boolFlag interface {
	IsBoolFlag() bool
}

// Filter returns the arguments of args that name a flag defined in fs,
// together with their values. "-name value", "-name=value" and the "--"
// forms are recognised. A bool flag never takes the following argument as
// its value. Anything else is dropped.
func Filter(fs *flag.FlagSet, args []string) []string {
	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") || arg == "-" || arg == "--" {
			continue
		}

		name := strings.TrimLeft(arg, "-")
		name, _, hasValue := strings.Cut(name, "=")
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		filtered = append(filtered, arg)
		if hasValue {
			continue
		}
		if b, ok := f.Value.(boolFlag); ok && b.IsBoolFlag() {
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// Parse parses the flags fs defines out of args and ignores the rest.
func Parse(fs *flag.FlagSet, args []string) error {
	return fs.Parse(Filter(fs, args))
}

// ConfigFile returns the JSON config path given with -c or -config, or ""
// when neither is present. The last occurrence wins.
func ConfigFile(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to JSON config file")
	fs.StringVar(&path, "c", "", "path to JSON config file (short)")
	_ = Parse(fs, args)

	return path
}
