package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// formatLocationsText formats CLILocation results as "file:line:col" lines.
func formatLocationsText(w io.Writer, locs []CLILocation) {
	for _, loc := range locs {
		fmt.Fprintf(w, "%s:%d:%d\n", loc.File, loc.StartLine, loc.StartCol)
	}
}

// formatReferencesText prints the declaration line followed by an aligned
// table of usages.
func formatReferencesText(w io.Writer, refs CLIReferences) {
	d := refs.Declaration
	fmt.Fprintf(w, "%s %s %s:%d:%d", d.Kind, d.Name, d.Location.File, d.Location.StartLine, d.Location.StartCol)
	if d.Access != "" {
		fmt.Fprintf(w, " (%s)", d.Access)
	}
	fmt.Fprintln(w)

	if len(refs.References) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tLINE\tCOL\tKIND\tACCESS")
	for _, r := range refs.References {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n", r.File, r.StartLine, r.StartCol, r.Kind, r.Access)
	}
	tw.Flush()
}

// outputResultText dispatches to the text formatter for the result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLILocation:
		formatLocationsText(w, v)
	case CLIReferences:
		formatReferencesText(w, v)
	case nil:
		// Nothing resolved at the position.
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
