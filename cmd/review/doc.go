// Review is a CLI that lists GitHub pull requests and reviews them with an
// LLM, posting the structured findings back as a pull request review.
//
// Usage:
//
//	review --list-prs --state open --limit 5   # list open pull requests
//	review --pr 42 --dry-run                   # review without posting
//	review --pr 42 --dry-run --out             # also save dry/pr-42.txt
//	review config init                         # write a default config file
//
// The GitHub token is read from GITHUB_TOKEN or GH_TOKEN, a .env file in the
// working directory, or the gh CLI, in that order.
package main
