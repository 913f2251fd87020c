// Package generation turns a blog request into a finished blog. It defines
// the DraftGenerator and ImageGenerator boundaries to the external AI/LLM
// services (implemented by platform/gemini) and the Pipeline that combines a
// draft, its image pair, and HTML enhancement into a domain.GeneratedBlog.
package generation
