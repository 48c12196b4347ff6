// Copyright © 2018 One Concern

package storage

import (
	"bytes"
	"context"
	"sync"

	"github.com/ipfs/go-cid"
)

// MultiStoreUnit is used to specify multiple operations, some of which are tolerated to fail
type MultiStoreUnit struct {
	// Store is the backend to be accessed
	Store Store

	// TolerateFailure to false breaks multi-store operations whenever an error is encountered.
	TolerateFailure bool
}

// MultiPut duplicates write operations to an array of stores, under the same key
func MultiPut(ctx context.Context, stores []MultiStoreUnit, key cid.Cid, buffer []byte) error {
	errC := make(chan error, len(stores))
	var wg sync.WaitGroup

	for _, w := range stores {
		wg.Add(1)
		go func(w MultiStoreUnit, buffer []byte) {
			defer wg.Done()

			err := w.Store.Put(ctx, key, bytes.NewReader(buffer))
			if w.TolerateFailure {
				return
			}
			if err != nil {
				errC <- err
			}
		}(w, buffer)
	}
	wg.Wait()
	select {
	case err := <-errC:
		return err
	default:
		return nil
	}
}
