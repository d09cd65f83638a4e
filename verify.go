package nctree

import (
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
)

// VerifyWitnesses checks the witness of every marked position against the
// current root, spreading the work over pool. The tree must not be modified
// until it returns.
func (t *CheckpointedTree) VerifyWitnesses(pool *ants.Pool) error {
	root := t.frontier.Root()
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}
	for _, pos := range t.Marked() {
		w := t.marks[pos]
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if !VerifyPath(t.hasher, w.leaf, w.position, w.path(t.hasher), root) {
				fail(errors.Wrapf(ErrInvalidWitness, "position %d", w.position))
			}
		})
		if err != nil {
			wg.Done()
			fail(errors.Wrap(err, "submit witness verification"))
			break
		}
	}
	wg.Wait()
	return firstErr
}
