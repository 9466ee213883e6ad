// Package reviewengine implements the community review workflow inside the
// wiki-editorial context.
//
// The module owns the review lifecycle (start, revision submission, voting,
// deadline-driven finalization), outbox-backed event production, and the
// deadline sweeper. Business rules live in the application and domain layers;
// infrastructure stays behind ports and adapters.
package reviewengine
