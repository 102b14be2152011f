// FILE: lixenwraith/layerconf/args.go
package layerconf

import (
	"fmt"
	"strings"
)

// KeywordArg is one "<prefix><key> <value>" pair taken from the command line.
type KeywordArg struct {
	Key   string
	Value string
}

// ParseKeywordArgs extracts keyword arguments from an arbitrary argument
// list. A token matches when it starts with prefix and is not the prefix
// itself; a match consumes the following token as its value. Tokens that
// do not match are skipped one at a time.
//
// The second result holds warnings for a matching keyword left without a
// value at the end of args. They never affect the parsed pairs.
//
// A prefix that is ambiguous with ordinary arguments (e.g. "-") will pair
// unrelated tokens; that behavior is kept as is.
func ParseKeywordArgs(args []string, prefix string) ([]KeywordArg, []string) {
	n := len(args)
	if n == 0 {
		return nil, nil
	}

	var pairs []KeywordArg
	var warnings []string

	i := 0
	for i < n-1 {
		if !matchKeyword(args[i], prefix) {
			if i+2 == n && matchKeyword(args[i+1], prefix) {
				warnings = append(warnings, badKeywordWarning(args[i+1], prefix))
			}
			i++
			continue
		}

		pairs = append(pairs, KeywordArg{Key: args[i][len(prefix):], Value: args[i+1]})
		i += 2
	}

	if n%2 == 1 && matchKeyword(args[n-1], prefix) {
		warnings = append(warnings, badKeywordWarning(args[n-1], prefix))
	}

	return pairs, warnings
}

func matchKeyword(token, prefix string) bool {
	return strings.HasPrefix(token, prefix) && token != prefix
}

func badKeywordWarning(keyword, prefix string) string {
	return fmt.Sprintf("missing value in command-line when parsing keyword at the end of argv: keyword argument %q matches prefix %q", keyword, prefix)
}
