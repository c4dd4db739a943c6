// Package review runs the pull-request review flow.
//
// A Handler fetches the diff of one pull request, redacts obvious secrets,
// asks the configured model for findings in a single structured-output call,
// prints a text summary, and posts the findings back as a GitHub review.
// Dry-run configurations route the post through a client that only logs.
//
// Everything the flow needs arrives in a Config value built by the caller;
// nothing is read from the process environment here.
package review
