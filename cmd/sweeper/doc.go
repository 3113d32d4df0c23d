// Package main hosts the sweeper entrypoint.
//
// Architecture overview:
//   - Input: internal/urllist reads one URL per line from a local file or a gs:// object and, at the end,
//     writes the survivors back the same way. The output is removed before any URL is checked.
//   - Partition & dispatch: internal/dispatcher splits the list into ceil(n/workers) consecutive chunks and
//     runs one goroutine per chunk. Every chunk gets its own classifier, HTTP client, and browser lifecycle;
//     survivors land in a shared append-only accumulator.
//   - Classification: per URL, cheapest first. A plain colly GET records every redirect hop; a body identical
//     to the previous URL's short-circuits to ALIVE; a hop onto the site root, or soft-404 wording in
//     h1/h2/h3/title, means DEAD; otherwise a headless browser (chromedp or rod) renders the page and the
//     root-redirect and wording checks run again on the result.
//   - Observability: zap logs, a progress hub fanning verdict events out to log, Prometheus, and tally sinks,
//     an optional Prometheus textfile, and an optional Pub/Sub run summary.
//
// Quick checklist:
//   - Run: sweeper -i urls.txt -o alive.txt [-w 8] [-v] [--config sweeper.yaml] [--metrics-file sweeper.prom]
//   - Env overrides use the SWEEPER_ prefix, e.g. SWEEPER_RENDER_ENABLED=false on hosts without Chrome.
//   - gs:// paths and Pub/Sub use Application Default Credentials.
package main
