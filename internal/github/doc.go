// Package github is the GitHub platform collaborator for prreview.
//
// It wraps the go-github pull-request service behind a narrow interface so
// that listing, diff retrieval, and review posting can be mocked in tests.
// A dry-run wrapper suppresses every write while letting reads through.
// The current repository can be detected from the local git remote.
package github
