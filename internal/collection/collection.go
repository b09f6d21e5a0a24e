package collection

import (
	"fmt"

	"github.com/mvp-joe/codebraid/internal/chunk"
	"github.com/mvp-joe/codebraid/internal/message"
)

// Base is the common ordered-chunk-list machinery CodeCollection names:
// Session and Source both embed it and add their own finalisation on top.
type Base struct {
	Key    Key
	Chunks []*chunk.Chunk
	Status *message.Collector
}

func newBase(key Key) Base {
	return Base{Key: key, Status: &message.Collector{}}
}

// Append adds c to the collection, assigning its Index and folding its
// accumulated messages into the collection's rollup.
func (b *Base) Append(c *chunk.Chunk) {
	c.Index = len(b.Chunks)
	b.Chunks = append(b.Chunks, c)
	if c.Messages != nil {
		b.Status.Merge(c.Messages)
	}
}

// assignCodeStartLines performs finalisation pass 4: sequential
// code_start_line_number assignment across chunks in the collection.
func (b *Base) assignCodeStartLines() {
	line := 1
	for _, c := range b.Chunks {
		c.CodeStartLineNumber = line
		line += len(c.CodeLines)
	}
}

// assignOutputIndexes performs finalisation passes 1-3: outside_main
// transition bookkeeping, complete-boundary output_index back-assignment,
// and the final-chunk-must-be-complete rule.
func (b *Base) assignOutputIndexes() error {
	if len(b.Chunks) == 0 {
		return nil
	}

	insideOutside := false
	enteredOutside := false
	exitedOutside := false
	outsideStart := -1

	pendingStart := 0
	for i, c := range b.Chunks {
		nowOutside := c.Options.OutsideMain
		if nowOutside != insideOutside {
			if nowOutside {
				if enteredOutside {
					return fmt.Errorf("chunk %d: outside_main may only be entered once per session", i)
				}
				enteredOutside = true
				outsideStart = i
			} else {
				if exitedOutside {
					return fmt.Errorf("chunk %d: outside_main may only be exited once per session", i)
				}
				exitedOutside = true
				if i > 0 && !b.Chunks[i-1].Complete() {
					return fmt.Errorf("chunk %d: chunk preceding an outside_main exit must be complete", i)
				}
				last := b.Chunks[i-1]
				for j := outsideStart; j <= i-1; j++ {
					b.Chunks[j].OutputIndex = last.Index
				}
				pendingStart = i
			}
			insideOutside = nowOutside
		}

		if !nowOutside && c.Complete() {
			c.OutputIndex = c.Index
			for j := pendingStart; j < i; j++ {
				b.Chunks[j].OutputIndex = c.Index
			}
			pendingStart = i + 1
		}
	}

	if insideOutside {
		last := b.Chunks[len(b.Chunks)-1]
		for j := outsideStart; j < len(b.Chunks); j++ {
			b.Chunks[j].OutputIndex = last.Index
		}
		return nil
	}

	final := b.Chunks[len(b.Chunks)-1]
	if !final.Complete() {
		return fmt.Errorf("final chunk must be complete=true unless the session ends outside_main")
	}
	return nil
}
