// Package site renders the public pages over the content aggregate: the
// streamed single page, the error and not-found pages, the sitemap and the
// JSON content API.
package site
