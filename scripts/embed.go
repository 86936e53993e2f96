// Package scripts embeds the Risor extraction scripts.
package scripts

import "embed"

// FS holds extract/*.risor, loaded by the engine unless a scripts
// directory on disk is configured.
//
//go:embed extract/*.risor
var FS embed.FS
