// Package content turns a fetched HTML body into the structure indicator
// extractors read: script sources, meta tags, anchor hrefs, title,
// description and one normalized blob of visible text.
//
// Design decision: parsing never fails. The web is full of broken markup
// and an empty or unparseable body is still a valid input to the
// classifier; it just carries no signal. Parse therefore always returns a
// Document, marking it Degraded instead of returning an error, and every
// indicator treats a degraded document as "nothing found".
package content
