package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
)

var flagScope []string

var refsCmd = &cobra.Command{
	Use:   "refs <file> <line> <col>",
	Short: "Find the declaration and usages of the name at a position",
	Long:  "Resolves the name at <file>:<line>:<col> and lists its declaration and every usage. Line and column numbers are 0-based; columns count bytes.",
	Args:  cobra.ExactArgs(3),
	RunE:  runRefs,
}

var defCmd = &cobra.Command{
	Use:   "def <file> <line> <col>",
	Short: "Go to the definition of the name at a position",
	Long:  "Resolves the name at <file>:<line>:<col> to its definition. Line and column numbers are 0-based.",
	Args:  cobra.ExactArgs(3),
	RunE:  runDef,
}

func init() {
	refsCmd.Flags().StringArrayVar(&flagScope, "scope", nil, "restrict the search to files matching this glob (repeatable)")
}

func runRefs(cmd *cobra.Command, args []string) error {
	file, line, col, err := parsePositionArgs(args)
	if err != nil {
		return outputError(cmd, "refs", err)
	}
	engine, _, err := workspace()
	if err != nil {
		return outputError(cmd, "refs", err)
	}
	defer engine.Close()

	ctx := commandContext(cmd)
	q, err := engine.Query(ctx)
	if err != nil {
		return outputError(cmd, "refs", err)
	}
	set, err := q.ReferencesAt(ctx, file, line, col, flagScope...)
	if err != nil {
		return outputError(cmd, "refs", err)
	}

	result := CLIResult{Command: "refs"}
	if set != nil {
		refs := toCLIReferences(set)
		result.Results = refs
		n := set.Len()
		result.TotalCount = &n
	}
	return outputResult(cmd, result)
}

func runDef(cmd *cobra.Command, args []string) error {
	file, line, col, err := parsePositionArgs(args)
	if err != nil {
		return outputError(cmd, "def", err)
	}
	engine, _, err := workspace()
	if err != nil {
		return outputError(cmd, "def", err)
	}
	defer engine.Close()

	ctx := commandContext(cmd)
	q, err := engine.Query(ctx)
	if err != nil {
		return outputError(cmd, "def", err)
	}
	locs, err := q.DefinitionAt(ctx, file, line, col)
	if err != nil {
		return outputError(cmd, "def", err)
	}

	out := make([]CLILocation, 0, len(locs))
	for _, l := range locs {
		out = append(out, toCLILocation(l))
	}
	return outputResult(cmd, CLIResult{Command: "def", Results: out})
}

// parsePositionArgs parses <file> <line> <col>.
func parsePositionArgs(args []string) (string, int, int, error) {
	file, err := resolveFilePath(args[0])
	if err != nil {
		return "", 0, 0, err
	}
	line, err := parseIntArg(args[1], "line")
	if err != nil {
		return "", 0, 0, err
	}
	col, err := parseIntArg(args[2], "col")
	if err != nil {
		return "", 0, 0, err
	}
	return file, line, col, nil
}

// resolveFilePath converts a file argument to an absolute path relative to
// the current working directory.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}

// parseIntArg parses a positional argument as an integer with a clear error.
func parseIntArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", name, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be non-negative", name, value)
	}
	return n, nil
}

// outputResult writes a CLIResult to stdout in the selected format.
func outputResult(cmd *cobra.Command, result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(cmd.OutOrStdout(), result)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError reports err in the selected format and returns it so the
// process exits non-zero.
func outputError(cmd *cobra.Command, command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}
