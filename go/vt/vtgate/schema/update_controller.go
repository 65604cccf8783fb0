/*
Copyright 2019 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package schema

import (
	"sync"
)

type (
	queue struct {
		items []string
	}

	// updateController runs the reloads of one tracker in the
	// background, one at a time, in the order they were requested.
	updateController struct {
		mu     sync.Mutex
		queue  *queue
		update func(ks string)
		signal func()
	}
)

func (u *updateController) consume() {
	for {
		u.mu.Lock()
		if len(u.queue.items) == 0 {
			u.queue = nil
			u.mu.Unlock()
			return
		}
		item := u.queue.items[0]
		u.queue.items = u.queue.items[1:]
		signal := u.signal
		u.mu.Unlock()

		u.update(item)
		if signal != nil {
			signal()
		}
	}
}

// add queues a reload of the keyspace. A keyspace that's
// already waiting in the queue is not added again.
func (u *updateController) add(ks string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.queue == nil {
		u.queue = &queue{}
		go u.consume()
	}
	for _, item := range u.queue.items {
		if item == ks {
			return
		}
	}
	u.queue.items = append(u.queue.items, ks)
}

func (u *updateController) setSignal(signal func()) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.signal = signal
}
