// Package flagx lets several components parse their own subset of os.Args
// without tripping over each other's flags.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs returns the subset of args made of the allowed flags and their
// values. Valued flags may appear as "-f value" or "-f=value". Switches are
// boolean flags: they never consume the following argument.
//
// "--name" is matched against "-name" as well, since the flag package accepts
// both spellings.
func FilterArgs(args []string, allowedFlags []string, switches ...string) []string {
	allowed := make(map[string]bool, len(allowedFlags)+len(switches))
	for _, f := range allowedFlags {
		allowed[f] = true
	}
	for _, f := range switches {
		allowed[f] = false
	}

	lookup := func(name string) (valued, ok bool) {
		if v, ok := allowed[name]; ok {
			return v, true
		}
		if strings.HasPrefix(name, "--") {
			v, ok := allowed[name[1:]]
			return v, ok
		}
		return false, false
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := lookup(name); ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		valued, ok := lookup(arg)
		if !ok {
			continue
		}
		filtered = append(filtered, arg)
		if valued && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// ConfigFileFlag returns the path passed with -c or -config, or "" when
// neither is present.
func ConfigFileFlag() string {
	var config string

	args := FilterArgs(os.Args[1:], []string{"-c", "-config"})

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = fs.Parse(args)

	return config
}
