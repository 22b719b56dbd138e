// Package ui provides the embedded web page of the inthistweet server.
//
// The page is a single static document. It calls /api/twitter from the
// browser, so it works with API key auth enabled.
package ui

import (
	_ "embed"
)

// IndexHTML is the tweet media search page.
//
//go:embed index.html
var IndexHTML []byte
