package report

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffOp marks a diff segment as unchanged, added or removed.
type DiffOp string

const (
	DiffEqual  DiffOp = "equal"
	DiffInsert DiffOp = "insert"
	DiffDelete DiffOp = "delete"
)

// DiffSegment is a run of text with a single diff operation.
type DiffSegment struct {
	Op   DiffOp
	Text string
}

// TextDiff computes a semantic diff between two texts.
func TextDiff(before, after string) []DiffSegment {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	segs := make([]DiffSegment, 0, len(diffs))
	for _, d := range diffs {
		if d.Text == "" {
			continue
		}
		var op DiffOp
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = DiffInsert
		case diffmatchpatch.DiffDelete:
			op = DiffDelete
		default:
			op = DiffEqual
		}
		segs = append(segs, DiffSegment{Op: op, Text: d.Text})
	}
	return segs
}
