package preprocess

import "strings"

// Window is a run of consecutive sentences used for cross-sentence relation
// extraction. StartIdx/EndIdx index into the segmented sentence list
// (EndIdx exclusive).
type Window struct {
	Sentences []string
	StartIdx  int
	EndIdx    int
}

// Text returns the concatenated window text.
func (w Window) Text() string {
	return strings.Join(w.Sentences, " ")
}

// Windower produces overlapping sentence windows.
type Windower struct {
	WindowSize int
	Overlap    int
	// Threshold is the sentence count above which windowing kicks in;
	// shorter texts return a single window equal to the input.
	Threshold int
}

// NewWindower creates a windower with the given parameters. Invalid values
// fall back to the defaults (size 3, overlap 1, threshold 5).
func NewWindower(windowSize, overlap, threshold int) *Windower {
	if windowSize < 2 {
		windowSize = 3
	}
	if overlap < 0 || overlap >= windowSize {
		overlap = 1
	}
	if threshold <= 0 {
		threshold = 5
	}
	return &Windower{WindowSize: windowSize, Overlap: overlap, Threshold: threshold}
}

// Windows segments text into overlapping sentence windows. Texts at or below
// the threshold come back as one window holding the whole input. The last
// WindowSize sentences are always covered by a final aligned window.
func (w *Windower) Windows(text string) []Window {
	sentences := SplitSentences(text)
	n := len(sentences)
	if n == 0 {
		return []Window{{Sentences: []string{text}, StartIdx: 0, EndIdx: 0}}
	}
	if n <= w.Threshold {
		return []Window{{Sentences: []string{text}, StartIdx: 0, EndIdx: n}}
	}

	texts := make([]string, n)
	for i, s := range sentences {
		texts[i] = s.Text
	}

	step := w.WindowSize - w.Overlap
	var windows []Window
	for start := 0; start < n; start += step {
		end := start + w.WindowSize
		if end > n {
			end = n
		}
		windows = append(windows, Window{
			Sentences: texts[start:end],
			StartIdx:  start,
			EndIdx:    end,
		})
		if end == n {
			break
		}
	}

	// Align the tail: the final window must span exactly the last WindowSize
	// sentences so none of them is seen only in a truncated window.
	last := windows[len(windows)-1]
	if n >= w.WindowSize && last.StartIdx != n-w.WindowSize {
		windows = append(windows, Window{
			Sentences: texts[n-w.WindowSize : n],
			StartIdx:  n - w.WindowSize,
			EndIdx:    n,
		})
	}

	return windows
}
