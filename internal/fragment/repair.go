// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fragment finds the Beamer frame inside raw model output and closes
// environments the model left open.
//
// Balance is checked by counting \begin{x} and \end{x} occurrences per
// environment. This is not a parser: wrongly nested but equally counted
// environments pass, and surplus \end tags are reported but left in place.
package fragment

import "strings"

// Env is a tracked LaTeX environment name.
type Env string

const (
	EnvFrame   Env = "frame"
	EnvBlock   Env = "block"
	EnvItemize Env = "itemize"
)

// closeOrder lists environments innermost first; missing \end tags are
// appended in this order.
var closeOrder = []Env{EnvItemize, EnvBlock, EnvFrame}

// Begin returns the opening tag of e.
func (e Env) Begin() string { return `\begin{` + string(e) + `}` }

// End returns the closing tag of e.
func (e Env) End() string { return `\end{` + string(e) + `}` }

// Balance holds the tag counts of one environment.
type Balance struct {
	Env    Env
	Opens  int
	Closes int
}

// Missing returns how many closing tags must be appended.
func (b Balance) Missing() int { return max(b.Opens-b.Closes, 0) }

// Surplus returns how many closing tags have no opening tag.
func (b Balance) Surplus() int { return max(b.Closes-b.Opens, 0) }

// Result is a repaired fragment.
type Result struct {
	// Text is the fragment starting at the first \begin{frame}, with any
	// missing closing tags appended.
	Text string

	// Appended lists the closing tags that were added, in order.
	Appended []string

	// Malformed lists environments with more \end than \begin tags. They
	// are not corrected.
	Malformed []Env
}

// Repaired reports whether closing tags were appended.
func (r Result) Repaired() bool { return len(r.Appended) > 0 }

// Locate drops everything before the first \begin{frame}. Text without a
// frame is returned whole.
func Locate(raw string) string {
	if i := strings.Index(raw, EnvFrame.Begin()); i >= 0 {
		return raw[i:]
	}
	return raw
}

// Count returns the balance of every tracked environment, innermost first.
func Count(text string) []Balance {
	out := make([]Balance, len(closeOrder))
	for i, env := range closeOrder {
		out[i] = Balance{
			Env:    env,
			Opens:  strings.Count(text, env.Begin()),
			Closes: strings.Count(text, env.End()),
		}
	}
	return out
}

// Balanced reports whether every tracked environment has as many \end as
// \begin tags.
func Balanced(text string) bool {
	for _, b := range Count(text) {
		if b.Opens != b.Closes {
			return false
		}
	}
	return true
}

// Repair locates the frame in raw and appends the closing tags needed to
// balance it: all missing \end{itemize}, then \end{block}, then \end{frame},
// each on its own line. Balanced input is returned unchanged, so
// Repair(Repair(x).Text).Text == Repair(x).Text.
func Repair(raw string) Result {
	text := Locate(raw)
	res := Result{Text: text}

	var b strings.Builder
	b.WriteString(text)
	for _, bal := range Count(text) {
		if bal.Surplus() > 0 {
			res.Malformed = append(res.Malformed, bal.Env)
		}
		for range bal.Missing() {
			b.WriteString("\n")
			b.WriteString(bal.Env.End())
			res.Appended = append(res.Appended, bal.Env.End())
		}
	}

	if res.Repaired() {
		res.Text = b.String()
	}
	return res
}
