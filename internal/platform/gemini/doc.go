// Package gemini implements the generation boundaries on top of Google's
// Gemini API (google.golang.org/genai).
//
// DraftGenerator renders a prompt template for each blog request, asks the
// text model for a JSON draft, and retries transient failures with
// exponential backoff and jitter. ImageGenerator renders images with the image
// model. IdentifyBrandName asks the text model for a brand's Instagram
// display name.
//
// All calls go through the Models interface, which *genai.Models satisfies,
// so tests can substitute a fake.
package gemini
