// Package postservice owns wiki article state inside the wiki-editorial
// context: creation, soft deletion, reads, and the status transitions driven
// by terminal review events.
package postservice
