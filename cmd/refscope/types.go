package main

import "github.com/jward/refscope"

// CLIResult is the top-level JSON envelope for all query commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLILocation is a JSON-friendly source range. Lines and columns are
// 0-based.
type CLILocation struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// CLIDeclaration is the declaration of a searched name.
type CLIDeclaration struct {
	Name     string      `json:"name"`
	Kind     string      `json:"kind"`
	Location CLILocation `json:"location"`
	Full     CLILocation `json:"full"`
	Access   string      `json:"access,omitempty"`
}

// CLIReference is one usage.
type CLIReference struct {
	CLILocation
	Kind   string `json:"kind"`
	Access string `json:"access,omitempty"`
}

// CLIReferences is the result of the refs command.
type CLIReferences struct {
	Name        CLILocation    `json:"name"`
	Declaration CLIDeclaration `json:"declaration"`
	References  []CLIReference `json:"references"`
}

func toCLILocation(l refscope.Location) CLILocation {
	return CLILocation{
		File:      l.File,
		StartLine: l.StartLine,
		StartCol:  l.StartCol,
		EndLine:   l.EndLine,
		EndCol:    l.EndCol,
	}
}

func toCLIReferences(set *refscope.ReferenceSet) CLIReferences {
	out := CLIReferences{
		Name: toCLILocation(set.Name),
		Declaration: CLIDeclaration{
			Name:     set.Declaration.Name,
			Kind:     set.Declaration.Kind,
			Location: toCLILocation(set.Declaration.Location),
			Full:     toCLILocation(set.Declaration.Full),
			Access:   set.Declaration.Access,
		},
		References: make([]CLIReference, 0, len(set.References)),
	}
	for _, r := range set.References {
		out.References = append(out.References, CLIReference{
			CLILocation: toCLILocation(r.Location),
			Kind:        r.Kind,
			Access:      r.Access,
		})
	}
	return out
}
