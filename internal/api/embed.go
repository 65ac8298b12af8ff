package api

import "embed"

// templates contains the grid page.
//
//go:embed templates/*
var templates embed.FS
