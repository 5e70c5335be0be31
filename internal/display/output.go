package display

import (
	"bufio"
	"io"
	"sync"
)

// outputTail keeps the last lines one display server wrote.
type outputTail struct {
	mu   sync.Mutex
	max  int
	tail []string
}

func newOutputTail(max int) *outputTail {
	if max < 1 {
		max = 1
	}
	return &outputTail{max: max}
}

func (o *outputTail) add(line string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.tail) == o.max {
		copy(o.tail, o.tail[1:])
		o.tail = o.tail[:o.max-1]
	}
	o.tail = append(o.tail, line)
}

// lines returns a copy, oldest first.
func (o *outputTail) lines() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.tail...)
}

// capture reads every non-nil reader to EOF.
func (o *outputTail) capture(readers ...io.Reader) {
	var wg sync.WaitGroup
	for _, r := range readers {
		if r == nil {
			continue
		}
		wg.Add(1)
		go func(r io.Reader) {
			defer wg.Done()
			scanner := bufio.NewScanner(r)
			for scanner.Scan() {
				o.add(scanner.Text())
			}
		}(r)
	}
	wg.Wait()
}
