// Package secrets implements the Secrets Guard (spec.md §4.13): regex and
// entropy-based scanning of transformed content for likely credentials, with
// three redaction modes applied before content reaches the sink.
package secrets

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"regexp"
	"strings"
)

// Finding describes one detected secret occurrence.
type Finding struct {
	Type  string // e.g. "aws_access_key", "generic_high_entropy"
	Match string
	Line  int
}

// RedactMode selects how a detected secret is replaced in the output.
type RedactMode string

const (
	// RedactTyped replaces the match with "[REDACTED:<type>]".
	RedactTyped RedactMode = "typed"
	// RedactGeneric replaces the match with the fixed string "[REDACTED]".
	RedactGeneric RedactMode = "generic"
	// RedactHash replaces the match with a stable short hash, so repeated
	// occurrences of the same secret redact to the same token.
	RedactHash RedactMode = "hash"
)

type pattern struct {
	typ string
	re  *regexp.Regexp
}

// patterns covers common high-signal credential shapes. Order matters only
// for the order of Findings within a line: Scan reports a finding for every
// pattern that matches, so the same text can yield findings of several types.
var patterns = []pattern{
	{"aws_access_key", regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)},
	{"aws_secret_key", regexp.MustCompile(`\b[A-Za-z0-9/+=]{40}\b`)},
	{"github_token", regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36}\b`)},
	{"slack_token", regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9-]{10,48}\b`)},
	{"private_key_block", regexp.MustCompile(`-----BEGIN (?:RSA |EC |OPENSSH )?PRIVATE KEY-----`)},
	{"generic_api_key", regexp.MustCompile(`(?i)(api[_-]?key|secret|token)\s*[:=]\s*["']?[A-Za-z0-9_\-]{16,}["']?`)},
}

const (
	entropyThreshold = 4.0
	minEntropyLen    = 20
)

// entropyCandidate matches bare long alphanumeric runs, which Scan further
// filters by Shannon entropy to catch secrets none of the typed patterns
// recognize without flagging every long identifier.
var entropyCandidate = regexp.MustCompile(`\b[A-Za-z0-9+/_\-]{20,}\b`)

// Scan reports every likely secret in content, combining typed regex
// patterns with a Shannon-entropy fallback for unstructured tokens.
func Scan(content string) []Finding {
	var findings []Finding
	seen := make(map[string]bool)

	lines := strings.Split(content, "\n")
	for lineNum, line := range lines {
		for _, p := range patterns {
			for _, m := range p.re.FindAllString(line, -1) {
				key := p.typ + ":" + m
				if seen[key] {
					continue
				}
				seen[key] = true
				findings = append(findings, Finding{Type: p.typ, Match: m, Line: lineNum + 1})
			}
		}

		for _, m := range entropyCandidate.FindAllString(line, -1) {
			if len(m) < minEntropyLen {
				continue
			}
			if shannonEntropy(m) < entropyThreshold {
				continue
			}
			key := "generic_high_entropy:" + m
			if seen[key] {
				continue
			}
			seen[key] = true
			findings = append(findings, Finding{Type: "generic_high_entropy", Match: m, Line: lineNum + 1})
		}
	}

	return findings
}

// shannonEntropy computes the Shannon entropy, in bits per character, of s.
func shannonEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	freq := make(map[rune]int)
	for _, r := range s {
		freq[r]++
	}
	var entropy float64
	n := float64(len(s))
	for _, count := range freq {
		p := float64(count) / n
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// Redact replaces every finding's match in content according to mode.
func Redact(content string, findings []Finding, mode RedactMode) string {
	out := content
	for _, f := range findings {
		var replacement string
		switch mode {
		case RedactGeneric:
			replacement = "[REDACTED]"
		case RedactHash:
			replacement = "[REDACTED:sha256:" + shortHash(f.Match) + "]"
		default: // RedactTyped
			replacement = "[REDACTED:" + f.Type + "]"
		}
		out = strings.ReplaceAll(out, f.Match, replacement)
	}
	return out
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:8]
}
