// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fragment

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wellFormed = `\begin{frame}{Title}
  \textbf{Key message}
  \begin{block}{Summary}
    \begin{itemize}
      \item one
      \item two
    \end{itemize}
  \end{block}
\end{frame}`

func TestRepair_PreambleAndTruncation(t *testing.T) {
	raw := `preamble text \begin{frame}{T}\textbf{M}\begin{block}{B}\begin{itemize}\item x\end{itemize}`

	res := Repair(raw)

	want := `\begin{frame}{T}\textbf{M}\begin{block}{B}\begin{itemize}\item x\end{itemize}` +
		"\n" + `\end{block}` + "\n" + `\end{frame}`
	assert.Equal(t, want, res.Text)
	assert.Equal(t, []string{`\end{block}`, `\end{frame}`}, res.Appended)
	assert.Empty(t, res.Malformed)
	assert.True(t, Balanced(res.Text))
}

func TestRepair_BalancedUnchanged(t *testing.T) {
	res := Repair(wellFormed)
	assert.Equal(t, wellFormed, res.Text)
	assert.False(t, res.Repaired())

	// Extra balanced content after the frame is kept.
	withTail := wellFormed + "\n% trailing note\n"
	assert.Equal(t, withTail, Repair(withTail).Text)
}

func TestRepair_NoFrameKeepsWholeText(t *testing.T) {
	raw := "ERROR: Can't invoke 'm'. Reason: throttled"
	res := Repair(raw)
	assert.Equal(t, raw, res.Text)
	assert.False(t, res.Repaired())

	// Without a frame, other open environments are still closed.
	res = Repair(`intro \begin{itemize}\item a`)
	assert.Equal(t, `intro \begin{itemize}\item a`+"\n"+`\end{itemize}`, res.Text)
}

func TestRepair_MissingCounts(t *testing.T) {
	for k := 0; k <= 2; k++ {
		for m := 0; m <= 2; m++ {
			for n := 0; n <= 2; n++ {
				t.Run(fmt.Sprintf("frame%d_block%d_itemize%d", k, m, n), func(t *testing.T) {
					raw := "noise " + strings.Repeat(`\begin{frame}{T}`, k+1) +
						strings.Repeat(`\begin{block}{B}`, m) +
						strings.Repeat(`\begin{itemize}\item x`, n) +
						`\end{frame}`

					res := Repair(raw)
					require.True(t, Balanced(res.Text), res.Text)
					assert.True(t, strings.HasPrefix(res.Text, `\begin{frame}`))

					var want []string
					for range n {
						want = append(want, `\end{itemize}`)
					}
					for range m {
						want = append(want, `\end{block}`)
					}
					for range k {
						want = append(want, `\end{frame}`)
					}
					if len(want) == 0 {
						assert.Empty(t, res.Appended)
					} else {
						assert.Equal(t, want, res.Appended)
						assert.True(t, strings.HasSuffix(res.Text, "\n"+strings.Join(want, "\n")))
					}
				})
			}
		}
	}
}

func TestRepair_Idempotent(t *testing.T) {
	inputs := []string{
		wellFormed,
		`\begin{frame}{T}\begin{block}{B}\begin{itemize}\item cut off mid-sen`,
		"chatter\n" + wellFormed,
		`no frame at all`,
		`\begin{frame}\end{frame}\end{block}`,
		"",
	}
	for _, in := range inputs {
		once := Repair(in).Text
		twice := Repair(once).Text
		assert.Equal(t, once, twice, "input %q", in)
	}
}

func TestRepair_SurplusClosesNotCorrected(t *testing.T) {
	raw := `\begin{frame}{T}\begin{itemize}\item a\end{itemize}\end{itemize}\end{block}\end{frame}`

	res := Repair(raw)
	assert.Equal(t, raw, res.Text)
	assert.Equal(t, []Env{EnvItemize, EnvBlock}, res.Malformed)
	assert.False(t, res.Repaired())
}

func TestCount(t *testing.T) {
	got := Count(wellFormed + `\begin{itemize}`)
	assert.Equal(t, []Balance{
		{Env: EnvItemize, Opens: 2, Closes: 1},
		{Env: EnvBlock, Opens: 1, Closes: 1},
		{Env: EnvFrame, Opens: 1, Closes: 1},
	}, got)
	assert.Equal(t, 1, got[0].Missing())
	assert.Equal(t, 0, got[0].Surplus())
}

func TestLocate(t *testing.T) {
	assert.Equal(t, `\begin{frame}x`, Locate(`Sure! Here is your slide: \begin{frame}x`))
	assert.Equal(t, "nothing", Locate("nothing"))
	assert.Equal(t, `\begin{frame}a\begin{frame}b`, Locate(`pre\begin{frame}a\begin{frame}b`))
}
