package cli

const usage = `Usage:
  review --list-prs [--owner O] [--repo R] [--state open|closed|all] [--limit N]
  review --pr N [--owner O] [--repo R] [--dry-run] [--out [path]]
  review config show|init|path

Flags:
  --list-prs           list pull requests
  --state <state>      filter for --list-prs: open, closed or all (default open)
  --limit <n>          maximum pull requests to list (default 10)
  --pr <n>             review the given pull request
  --owner <name>       repository owner (default from GITHUB_REPOSITORY or git remote)
  --repo <name>        repository name
  --dry-run            do not post anything to GitHub
  --out [path], -out   save a transcript of the run (default dry/pr-<n>.txt)
  --provider <name>    model provider: anthropic, openai, gemini, ollama
  --model <name>       model name
  --log-level <level>  debug, info, warn or error
  --debug              verbose logging and token usage
  -h, --help           show this help

Environment:
  GITHUB_TOKEN / GH_TOKEN    GitHub token (falls back to .env, then gh auth token)
  ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY, OLLAMA_HOST
`
