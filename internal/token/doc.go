// Package token defines the token and fenced-region model produced by the
// template scanner.
// Invariants:
//   - Token.Text is exactly the bytes covered by Token.Span.
//   - Markup is the trimmed argument text of a tag (or the expression of an
//     output) and MarkupSpan covers it inside the original file.
//   - Bodies of fenced regions never appear as tokens; only the FenceStart
//     and FenceEnd delimiters do.
//   - Statements of a {% liquid %} block are emitted as Inline tag tokens
//     whose span covers the statement line.
package token
