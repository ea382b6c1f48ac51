package moderation

import "embed"

// CensoredFS ships the default blacklists, one <lang>.txt file per language.
//
//go:embed censored/*.txt
var CensoredFS embed.FS

const CensoredDir = "censored"
