// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package prompt renders the instruction sent to the model for one page
// group: the group's source text plus the Beamer frame skeleton the model
// must fill in.
package prompt

import (
	"bytes"
	"errors"
	"strings"
	"text/template"

	"github.com/pdiddy/slide-engine/pkg/types"
)

// ErrEmptyText is returned when there is no source text to summarize.
var ErrEmptyText = errors.New("no extractable text")

// slidePromptTmpl asks for exactly one frame: a title, one bold key message,
// and a block holding a short itemize list.
var slidePromptTmpl = template.Must(template.New("slide").Parse(`Create one easy-to-follow presentation slide, written in {{.Language}}, that explains the source text below.

## Source text

{{.Text}}

## Slide format

\begin{frame}{The main point or key concept of these pages}
  \textbf{One sentence explaining the key concept or message. Abbreviate terms that repeat to 2-3 letter acronyms (e.g. BTC, JPY).}
  \begin{block}{A concrete, easy-to-read summary of these pages}
    \begin{itemize}
      \item Explain the content concisely in itemize form, using complete statements.
      \item Keep each item within {{.MaxItemChars}} characters; prefer noun-ending phrases.
      \item Use at most {{.MaxItems}} items.
    \end{itemize}
  \end{block}
\end{frame}

## Output (only the content of this one slide, in LaTeX Beamer format, written in {{.Language}}; no other text):
`))

// Builder renders slide prompts. The zero value is not usable; start from
// Default or FromConfig.
type Builder struct {
	Language     string
	MaxItems     int
	MaxItemChars int
}

// Default returns a Builder producing Japanese slides with at most three
// bullets of at most forty characters.
func Default() Builder {
	return FromConfig(types.DefaultPipelineConfig().Prompt)
}

// FromConfig returns a Builder for the given prompt settings.
func FromConfig(cfg types.PromptConfig) Builder {
	return Builder{
		Language:     cfg.Language,
		MaxItems:     cfg.MaxItems,
		MaxItemChars: cfg.MaxItemChars,
	}
}

// Build embeds text verbatim into the slide prompt.
func (b Builder) Build(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}

	var buf bytes.Buffer
	err := slidePromptTmpl.Execute(&buf, struct {
		Builder
		Text string
	}{Builder: b, Text: text})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
