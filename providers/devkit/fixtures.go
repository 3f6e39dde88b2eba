package devkit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GenesisFixture returns count node transactions in genesis file format.
func GenesisFixture(count int) []string {
	if count <= 0 {
		count = 4
	}
	out := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		txn := map[string]any{
			"reqSignature": map[string]any{},
			"txn": map[string]any{
				"data": map[string]any{
					"data": map[string]any{
						"alias":       fmt.Sprintf("Node%d", i),
						"client_ip":   "127.0.0.1",
						"client_port": 9700 + 2*i,
						"node_ip":     "127.0.0.1",
						"node_port":   9700 + 2*i - 1,
						"services":    []string{"VALIDATOR"},
					},
					"dest": fmt.Sprintf("Gw6pDLhcBcoQesN72qfotTgFa7cbuqZpkX3Xo6pLhPh%d", i),
				},
				"metadata": map[string]any{"from": "Th7MpTaRZVRYnPiabds81Y"},
				"type":     "0",
			},
			"txnMetadata": map[string]any{
				"seqNo": i,
				"txnId": fmt.Sprintf("fea82e10e894419fe2bea7d96296a6d46f50f93f9eeda954ec461b2ed2950b6%d", i),
			},
			"ver": "1",
		}
		raw, _ := json.Marshal(txn)
		out = append(out, string(raw))
	}
	return out
}

// WriteGenesisFile writes a GenesisFixture of count nodes under dir and
// returns its path.
func WriteGenesisFile(dir string, count int) (string, error) {
	path := filepath.Join(dir, "pool_transactions_genesis")
	content := strings.Join(GenesisFixture(count), "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("devkit: write genesis file: %w", err)
	}
	return path, nil
}

// RequestBody builds a minimal ledger request of txnType.
func RequestBody(txnType string, reqID int64) string {
	raw, _ := json.Marshal(map[string]any{
		"reqId":           reqID,
		"identifier":      "Th7MpTaRZVRYnPiabds81Y",
		"protocolVersion": 2,
		"operation": map[string]any{
			"type": txnType,
			"dest": "Th7MpTaRZVRYnPiabds81Y",
		},
	})
	return string(raw)
}
