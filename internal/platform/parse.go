package platform

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
)

// parseTasklistCSV parses `tasklist /fo csv /nh` output:
//
//	"main.exe","4242","Console","1","35,120 K"
func parseTasklistCSV(out []byte) ([]ProcessEntry, error) {
	r := csv.NewReader(bytes.NewReader(out))
	r.FieldsPerRecord = -1

	var entries []ProcessEntry
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse tasklist output: %w", err)
		}
		if len(rec) < 2 {
			continue
		}

		pid, err := strconv.Atoi(strings.TrimSpace(rec[1]))
		if err != nil {
			// Header row or an informational line such as "INFO: No tasks..."
			continue
		}
		entries = append(entries, ProcessEntry{PID: pid, Name: strings.TrimSpace(rec[0])})
	}

	return entries, nil
}

// parsePS parses `ps -A -o pid= -o comm=` output. comm may be a full path on
// some systems; only its base name is kept.
func parsePS(out []byte) ([]ProcessEntry, error) {
	var entries []ProcessEntry

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}

		name := strings.Join(fields[1:], " ")
		entries = append(entries, ProcessEntry{PID: pid, Name: filepath.Base(name)})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ps output: %w", err)
	}

	return entries, nil
}
