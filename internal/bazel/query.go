package bazel

import (
	"fmt"
	"strings"

	"compdb/internal/errors"
)

// QueryExpression builds the aquery expression selecting the actions with
// mnemonic among the dependencies of targets whose label matches filter:
//
//	mnemonic('CppCompile', filter('^//', deps(//a) union deps(//b)))
func QueryExpression(mnemonic, filter string, targets []string) (string, error) {
	if len(targets) == 0 {
		return "", errors.New(errors.NoTargets, "no targets to query")
	}

	deps := make([]string, len(targets))
	for i, t := range targets {
		deps[i] = "deps(" + t + ")"
	}
	return fmt.Sprintf("mnemonic('%s', filter('%s', %s))", mnemonic, filter, strings.Join(deps, " union ")), nil
}
