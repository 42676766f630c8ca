package web

import "embed"

// Templates embeds HTML document templates.
//
//go:embed templates/**/*.html
var Templates embed.FS

// Static embeds static assets (logo, stamp).
//
//go:embed static/**/*
var Static embed.FS
