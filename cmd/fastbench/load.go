package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// loadKeys reads up to limit integer keys from path, taking the last
// whitespace-separated column of every line, so edge lists ("src dst") load
// their destination vertices. Blank lines and lines starting with '#' are
// skipped. An empty path yields the synthetic sequence 0..limit-1.
func loadKeys(path string, limit int) ([]int64, error) {
	if path == "" {
		keys := make([]int64, limit)
		for i := range keys {
			keys[i] = int64(i)
		}
		return keys, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open key file: %w", err)
	}
	defer f.Close()
	return readKeys(f, limit)
}

func readKeys(r io.Reader, limit int) ([]int64, error) {
	var keys []int64
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() && (limit <= 0 || len(keys) < limit) {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		k, err := strconv.ParseInt(fields[len(fields)-1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		keys = append(keys, k)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read keys: %w", err)
	}
	return keys, nil
}
