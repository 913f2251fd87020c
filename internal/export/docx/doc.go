// Package docx renders generated blogs into a single Word document.
//
// The output is a minimal WordprocessingML package: a cover title, a table of
// contents field that Word fills in when the file is opened, and one section
// per blog separated by page breaks. Blog HTML is converted to headings,
// paragraphs and list items; inline bold and italic runs are preserved.
package docx
