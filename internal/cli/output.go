package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/zktrails/zktrails/pkg/client"
)

func newClient() *client.Client {
	return client.New(getServer(), getAPIKey())
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// truncateAddress shortens a wallet address for table output.
func truncateAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

// parseAnswers parses "q1=1,q2=0" into question ID to option index.
func parseAnswers(s string) (map[string]int, error) {
	answers := make(map[string]int)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, idx, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("invalid answer %q: expected <question>=<option>", part)
		}
		n, err := strconv.Atoi(strings.TrimSpace(idx))
		if err != nil {
			return nil, fmt.Errorf("invalid option index in %q: %w", part, err)
		}
		answers[strings.TrimSpace(id)] = n
	}
	if len(answers) == 0 {
		return nil, errors.New("no answers given")
	}
	return answers, nil
}

func requireWallet() (string, error) {
	w := getWallet()
	if w == "" {
		return "", errors.New("wallet address required (use --wallet, ZKTRAILS_WALLET, or 'zktrails config init --wallet')")
	}
	return w, nil
}

func verdictMark(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
