// Copyright (c) 2019 Perlin
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

package sortition

import "sync"

// WorkerPool runs queued jobs on a fixed number of goroutines.
type WorkerPool struct {
	bus  chan func()
	stop chan struct{}
	wg   sync.WaitGroup

	once sync.Once
}

func NewWorkerPool() *WorkerPool {
	return &WorkerPool{
		stop: make(chan struct{}),
		bus:  make(chan func()),
	}
}

func (wp *WorkerPool) Start(workers int) {
	if workers < 1 {
		workers = 1
	}

	wp.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wp.wg.Done()
			for {
				select {
				case job := <-wp.bus:
					job()
				case <-wp.stop:
					return
				}
			}
		}()
	}
}

// Queue blocks until a worker picks the job up.
func (wp *WorkerPool) Queue(job func()) {
	wp.bus <- job
}

// Stop waits for running jobs to return. Jobs must not be queued after Stop.
func (wp *WorkerPool) Stop() {
	wp.once.Do(func() {
		close(wp.stop)
		wp.wg.Wait()
	})
}
