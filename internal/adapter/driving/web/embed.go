package web

import "embed"

// StaticFS holds the embedded static assets.
//
//go:embed static/*
var StaticFS embed.FS

// helpMarkdown is the source of the /app/help page.
//
//go:embed help.md
var helpMarkdown string
