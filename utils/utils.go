package utils

// AvgCharsPerToken is a conservative estimate for source code.
const AvgCharsPerToken = 2

// EstimateCharsFromTokens estimates the number of characters for a given token count
func EstimateCharsFromTokens(tokens int) int {
	return tokens * AvgCharsPerToken
}

// Window is the slice of a document sent to a model.
type Window struct {
	Lines     []string
	CursorRow int  // 0-indexed within Lines
	Start     int  // index of Lines[0] in the full document
	Trimmed   bool // false when the whole document fit
}

// End is the exclusive index of the last window line in the full document.
func (w Window) End() int {
	return w.Start + len(w.Lines)
}

// TrimContentAroundCursor picks the lines around cursorRow (0-indexed) that
// fit in maxTokens. Half the budget goes above the cursor and half below;
// budget unused on one side is given to the other. maxTokens <= 0 keeps
// everything.
func TrimContentAroundCursor(lines []string, cursorRow, maxTokens int) Window {
	if len(lines) == 0 {
		return Window{Lines: lines}
	}
	cursorRow = max(0, min(cursorRow, len(lines)-1))

	if maxTokens <= 0 {
		return Window{Lines: lines, CursorRow: cursorRow}
	}

	maxChars := EstimateCharsFromTokens(maxTokens)
	totalChars := 0
	for _, line := range lines {
		totalChars += len(line) + 1
	}
	if totalChars <= maxChars {
		return Window{Lines: lines, CursorRow: cursorRow}
	}

	halfBudget := (maxChars - len(lines[cursorRow]) - 1) / 2

	startLine, charsBefore := expandUp(lines, cursorRow, 0, halfBudget)

	budgetAfter := 2*halfBudget - charsBefore
	endLine := cursorRow
	charsAfter := 0
	for endLine < len(lines)-1 {
		next := len(lines[endLine+1]) + 1
		if charsAfter+next > budgetAfter {
			break
		}
		endLine++
		charsAfter += next
	}

	// lines below ran out: spend the rest above
	if unused := budgetAfter - charsAfter; unused > 0 {
		startLine, _ = expandUp(lines, startLine, charsBefore, halfBudget+unused)
	}

	trimmed := make([]string, endLine-startLine+1)
	copy(trimmed, lines[startLine:endLine+1])

	return Window{
		Lines:     trimmed,
		CursorRow: cursorRow - startLine,
		Start:     startLine,
		Trimmed:   true,
	}
}

func expandUp(lines []string, from, used, budget int) (int, int) {
	for from > 0 {
		prev := len(lines[from-1]) + 1
		if used+prev > budget {
			break
		}
		from--
		used += prev
	}
	return from, used
}
