// Package compdb assembles and writes compile command databases
// (compile_commands.json) from resolved bazel actions.
package compdb

import (
	"path"
)

// Entry is one record of a compile command database.
type Entry struct {
	Directory string   `json:"directory"`
	Arguments []string `json:"arguments"`
	File      string   `json:"file"`
}

// Compilers selects the compiler name that leads each entry's arguments.
type Compilers struct {
	C           string
	CXX         string
	CExtensions []string
}

// DefaultCompilers returns clang for .c files and clang++ for everything else.
func DefaultCompilers() Compilers {
	return Compilers{
		C:           "clang",
		CXX:         "clang++",
		CExtensions: []string{".c"},
	}
}

// For returns the compiler for a source path.
func (c Compilers) For(source string) string {
	ext := path.Ext(source)
	for _, cext := range c.CExtensions {
		if ext == cext {
			return c.C
		}
	}
	return c.CXX
}

// Emit builds the entry for an action whose compiled source is source. The
// action arguments are passed through untouched after the compiler name.
func Emit(executionRoot string, arguments []string, source string, compilers Compilers) Entry {
	args := make([]string, 0, len(arguments)+1)
	args = append(args, compilers.For(source))
	args = append(args, arguments...)

	return Entry{
		Directory: executionRoot,
		Arguments: args,
		File:      source,
	}
}
