package grounding

import "strings"

// chunkSize and chunkOverlap mirror the Python original's
// RecursiveCharacterTextSplitter(chunk_size=1000, chunk_overlap=200),
// grounded on app/services/vectorizer.py's _initialize_text_splitter.
const (
	chunkSize    = 1000
	chunkOverlap = 200
)

// separators are tried in order, widest boundary first, the same
// hierarchy LangChain's RecursiveCharacterTextSplitter uses by default.
var separators = []string{"\n\n", "\n", " ", ""}

// SplitText divides content into overlapping chunks of at most
// chunkSize runes, preferring to break on the highest-priority
// separator available within each window.
func SplitText(content string) []string {
	return splitRecursive(content, separators)
}

func splitRecursive(text string, seps []string) []string {
	if len([]rune(text)) <= chunkSize {
		if text == "" {
			return nil
		}
		return []string{text}
	}
	if len(seps) == 0 {
		return fixedWindowSplit(text)
	}

	sep := seps[0]
	var parts []string
	if sep == "" {
		parts = fixedWindowSplit(text)
	} else {
		parts = splitKeepingSeparator(text, sep)
	}

	merged := mergeSplits(parts, sep)

	var out []string
	for _, m := range merged {
		if len([]rune(m)) > chunkSize {
			out = append(out, splitRecursive(m, seps[1:])...)
		} else {
			out = append(out, m)
		}
	}
	return out
}

func splitKeepingSeparator(text, sep string) []string {
	raw := strings.Split(text, sep)
	parts := make([]string, 0, len(raw))
	for i, p := range raw {
		if i < len(raw)-1 {
			p += sep
		}
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func fixedWindowSplit(text string) []string {
	runes := []rune(text)
	var out []string
	for i := 0; i < len(runes); i += chunkSize {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}

// mergeSplits packs consecutive parts into windows up to chunkSize
// runes, carrying chunkOverlap runes of trailing context into the next
// window, the way LangChain's merge step preserves continuity across
// chunk boundaries.
func mergeSplits(parts []string, sep string) []string {
	if len(parts) == 0 {
		return nil
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
		}
	}

	for _, part := range parts {
		partLen := len([]rune(part))
		if currentLen+partLen > chunkSize && currentLen > 0 {
			flush()
			overlap := takeTrailingRunes(current.String(), chunkOverlap)
			current.Reset()
			current.WriteString(overlap)
			currentLen = len([]rune(overlap))
		}
		current.WriteString(part)
		currentLen += partLen
	}
	flush()

	_ = sep
	return chunks
}

func takeTrailingRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}

// ReassembleChunks concatenates chunks in ChunkIndex order, reversing
// the split performed at ingest time (spec.md §4.4 "context
// reconstruction"; grounded on vectorizer.py's sorted_chunks reassembly
// in check_duplicate_file).
func ReassembleChunks(contents []string) string {
	return strings.Join(contents, "")
}
