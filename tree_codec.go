package nctree

import (
	"io"
	"math/bits"

	"github.com/pkg/errors"

	"github.com/bnb-chain/zkbnb-nctree/utils"
)

// Write encodes the tree: the current frontier, the marked positions with
// their witnesses, and every retained checkpoint.
func (t *CheckpointedTree) Write(w io.Writer) error {
	if err := t.frontier.Write(w); err != nil {
		return err
	}
	if err := t.writeMarks(w, t.marks); err != nil {
		return err
	}
	if err := utils.WriteCompactSize(w, uint64(len(t.checkpoints))); err != nil {
		return err
	}
	for _, cp := range t.checkpoints {
		if err := utils.WriteUint32(w, cp.tag); err != nil {
			return err
		}
		if err := cp.frontier.Write(w); err != nil {
			return err
		}
		if err := t.writeMarks(w, cp.marks); err != nil {
			return err
		}
	}
	return nil
}

// Read replaces the tree's state with one decoded by Write. The tree is left
// unchanged if decoding fails.
func (t *CheckpointedTree) Read(r io.Reader) error {
	frontier := newFrontier(t.hasher, t.depth, t.subtreeHeight)
	if err := frontier.Read(r); err != nil {
		return err
	}
	marks, err := t.readMarks(r, frontier.size)
	if err != nil {
		return err
	}
	n, err := utils.ReadCompactSize(r)
	if err != nil {
		return err
	}
	checkpoints := make([]*checkpoint, 0, n)
	for i := uint64(0); i < n; i++ {
		tag, err := utils.ReadUint32(r)
		if err != nil {
			return err
		}
		if i > 0 && uint64(tag) != uint64(checkpoints[i-1].tag)+1 {
			return errors.Wrapf(ErrCorrupted, "checkpoint %d follows %d", tag, checkpoints[i-1].tag)
		}
		cpFrontier := newFrontier(t.hasher, t.depth, t.subtreeHeight)
		if err := cpFrontier.Read(r); err != nil {
			return err
		}
		cpMarks, err := t.readMarks(r, cpFrontier.size)
		if err != nil {
			return err
		}
		for _, w := range cpMarks {
			w.frozen = true
		}
		checkpoints = append(checkpoints, &checkpoint{tag: tag, frontier: cpFrontier, marks: cpMarks})
	}
	t.frontier = frontier
	t.marks = marks
	t.checkpoints = checkpoints
	t.updateMetrics()
	return nil
}

func (t *CheckpointedTree) writeMarks(w io.Writer, marks map[uint64]*witness) error {
	if err := utils.WriteCompactSize(w, uint64(len(marks))); err != nil {
		return err
	}
	for _, pos := range sortedPositions(marks) {
		if err := marks[pos].write(w); err != nil {
			return err
		}
	}
	return nil
}

func (t *CheckpointedTree) readMarks(r io.Reader, size uint64) (map[uint64]*witness, error) {
	n, err := utils.ReadCompactSize(r)
	if err != nil {
		return nil, err
	}
	if n > size {
		return nil, errors.Wrapf(ErrCorrupted, "%d marks in a tree of %d leaves", n, size)
	}
	marks := make(map[uint64]*witness, n)
	for i := uint64(0); i < n; i++ {
		w, err := t.readWitness(r)
		if err != nil {
			return nil, err
		}
		if w.position >= size {
			return nil, errors.Wrapf(ErrCorrupted, "mark %d beyond tree size %d", w.position, size)
		}
		if _, ok := marks[w.position]; ok {
			return nil, errors.Wrapf(ErrCorrupted, "duplicate mark %d", w.position)
		}
		marks[w.position] = w
	}
	return marks, nil
}

func (w *witness) write(wr io.Writer) error {
	if err := utils.WriteUint64(wr, w.position); err != nil {
		return err
	}
	if err := writeHash(wr, w.leaf); err != nil {
		return err
	}
	if err := utils.WriteUint64(wr, w.known); err != nil {
		return err
	}
	for l := range w.siblings {
		if w.known>>uint(l)&1 == 1 {
			if err := writeHash(wr, w.siblings[l]); err != nil {
				return err
			}
		}
	}
	if err := utils.WriteOption(wr, w.cursor != nil); err != nil || w.cursor == nil {
		return err
	}
	if err := utils.WriteByte(wr, w.cursorLevel); err != nil {
		return err
	}
	return w.cursor.Write(wr)
}

func (t *CheckpointedTree) readWitness(r io.Reader) (*witness, error) {
	position, err := utils.ReadUint64(r)
	if err != nil {
		return nil, err
	}
	// Witness nodes share the frontier's validation.
	nodes := newFrontier(t.hasher, t.depth, t.subtreeHeight)
	leaf, err := nodes.readNode(r)
	if err != nil {
		return nil, err
	}
	known, err := utils.ReadUint64(r)
	if err != nil {
		return nil, err
	}
	if bits.Len64(known) > int(t.depth) || position>>t.depth != 0 {
		return nil, errors.Wrap(ErrCorrupted, "witness exceeds tree depth")
	}
	w := &witness{
		position: position,
		leaf:     leaf,
		siblings: make([]Hash, t.depth),
		known:    known,
	}
	for l := range w.siblings {
		if known>>uint(l)&1 == 1 {
			if w.siblings[l], err = nodes.readNode(r); err != nil {
				return nil, err
			}
		}
	}
	hasCursor, err := utils.ReadOption(r)
	if err != nil || !hasCursor {
		return w, err
	}
	level, err := utils.ReadByte(r)
	if err != nil {
		return nil, err
	}
	if level == 0 || level >= t.depth || position>>level&1 == 1 || known>>level&1 == 1 {
		return nil, errors.Wrapf(ErrCorrupted, "witness cursor at level %d", level)
	}
	cursor := newFrontier(t.hasher, level, level)
	if err := cursor.Read(r); err != nil {
		return nil, err
	}
	if cursor.size == 0 || cursor.size == cursor.capacity() {
		return nil, errors.Wrap(ErrCorrupted, "witness cursor is empty or complete")
	}
	w.cursor = cursor
	w.cursorLevel = level
	return w, nil
}
