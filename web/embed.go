// Package web holds the server-rendered UI: html/template pages and
// fragments, plus the stylesheet and the small htmx glue script.
package web

import "embed"

// TemplatesFS holds every page and fragment template. Pages are named by
// file; fragments are {{define}} blocks shared across files.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the files served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
