package store

import (
	"bytes"

	"github.com/iov-one/xnft/errors"
)

// mergeIterators drains the parent iterator and combines it with the cached
// items, which must be sorted in the same direction. Cached values override
// the parent, deleted cached items hide the parent entry.
func mergeIterators(parent Iterator, ours []item, reverse bool) (Iterator, error) {
	defer parent.Release()

	var theirs []Model
	for {
		key, value, err := parent.Next()
		if errors.ErrIteratorDone.Is(err) {
			break
		}
		if err != nil {
			return nil, err
		}
		theirs = append(theirs, Pair(key, value))
	}

	res := make([]Model, 0, len(theirs)+len(ours))
	i, j := 0, 0
	for i < len(theirs) || j < len(ours) {
		var cmp int
		switch {
		case i == len(theirs):
			cmp = 1
		case j == len(ours):
			cmp = -1
		default:
			cmp = bytes.Compare(theirs[i].Key, ours[j].key)
			if reverse {
				cmp = -cmp
			}
		}

		switch {
		case cmp < 0:
			res = append(res, theirs[i])
			i++
		case cmp > 0:
			if !ours[j].deleted {
				res = append(res, Pair(ours[j].key, ours[j].value))
			}
			j++
		default:
			if !ours[j].deleted {
				res = append(res, Pair(ours[j].key, ours[j].value))
			}
			i++
			j++
		}
	}
	return NewSliceIterator(res), nil
}
