package parallel

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
)

func TestForEach(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.NumWorkers = 4

	var counter int64
	n := 1000

	err := ForEach(n, func(_ int) error {
		atomic.AddInt64(&counter, 1)
		return nil
	}, cfg)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counter != int64(n) {
		t.Errorf("Expected %d, got %d", n, counter)
	}
}

func TestForEach_EachIndexOnce(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 3}

	seen := make([]int32, 50)
	_ = ForEach(len(seen), func(i int) error {
		atomic.AddInt32(&seen[i], 1)
		return nil
	}, cfg)

	for i, c := range seen {
		if c != 1 {
			t.Errorf("index %d ran %d times", i, c)
		}
	}
}

func TestForEach_Sequential(t *testing.T) {
	var order []int
	err := ForEach(5, func(i int) error {
		order = append(order, i)
		return nil
	}, Sequential())

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("sequential order broken: %v", order)
		}
	}
}

func TestForEach_JoinsErrors(t *testing.T) {
	errOdd := errors.New("odd")

	for _, cfg := range []Config{Sequential(), {Enabled: true, NumWorkers: 4}} {
		var ran int64
		err := ForEach(6, func(i int) error {
			atomic.AddInt64(&ran, 1)
			if i%2 == 1 {
				return fmt.Errorf("item %d: %w", i, errOdd)
			}
			return nil
		}, cfg)

		if !errors.Is(err, errOdd) {
			t.Errorf("expected joined errOdd, got %v", err)
		}
		if ran != 6 {
			t.Errorf("all items must run, ran %d", ran)
		}
	}
}

func TestForEach_Empty(t *testing.T) {
	if err := ForEach(0, func(int) error { return errors.New("never") }, DefaultConfig()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
