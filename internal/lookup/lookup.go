package lookup

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"
)

// Read returns the trimmed, non-blank lines of r in order.
func Read(r io.Reader) ([]string, error) {
	names := []string{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if name := strings.TrimSpace(scanner.Text()); name != "" {
			names = append(names, name)
		}
	}
	return names, scanner.Err()
}

// ReadFile reads a lookup file. ok is false when path is empty or the file
// does not exist, in which case the caller falls back to enumeration.
func ReadFile(path string) (names []string, ok bool, err error) {
	if path == "" {
		return nil, false, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	names, err = Read(f)
	if err != nil {
		return nil, false, err
	}
	return names, true, nil
}
