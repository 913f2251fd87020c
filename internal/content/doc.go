// Package content cleans and enhances the HTML produced for generated blogs.
//
// Sanitize strips active content from model output. Enhance sanitizes and then
// guarantees the requested backlink appears in the body, preferring an inline
// link on the first mention of the primary keyword.
package content
