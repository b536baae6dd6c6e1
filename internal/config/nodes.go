package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadNodeList reads the device list: one hostname per line, order defines
// poll order. Blank lines and '#' comments are skipped. An empty list is a
// process-level misconfiguration and fails the whole run.
func LoadNodeList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open node list: %w", err)
	}
	defer f.Close()

	var nodes []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		nodes = append(nodes, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read node list: %w", err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("node list %s contains no devices", path)
	}
	return nodes, nil
}
