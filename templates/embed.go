// Package templates provides embedded prompt templates.
package templates

import "embed"

// Prompts contains the stage prompt templates. Variables use the
// {{NAME}} syntax and are interpolated by the prompt builder.
//
//go:embed prompts/*.md
var Prompts embed.FS

// SystemPrompts contains role-framing system prompts for each stage.
//
//go:embed system_prompts/*.md
var SystemPrompts embed.FS
