// Package relay serves CMS-hosted binary assets through the site's own
// origin. Every request resolves a URL from current content, checks it
// against a fixed set of asset hosts, fetches it once under a hard timeout
// and streams the body back only when the upstream content type is one the
// route expects.
package relay
