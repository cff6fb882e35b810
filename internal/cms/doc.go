// Package cms is the content aggregator. It fetches the site sections from
// a Source, decodes them into typed values, and applies the section policy:
// personal, experience, projects and skills are required, testimonials
// degrade to an empty list.
//
// Content is request scoped. Nothing here caches; the CDN in front of the
// site does.
package cms
