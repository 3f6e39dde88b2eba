// Package genesis provides a pool engine that serves the transactions of a
// genesis file and hands ledger requests to a pluggable Responder.
package genesis

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/goliatone/go-vdrpool/core"
)

const maxTransactionBytes = 1 << 20

// Transactions is a parsed genesis set in file order.
type Transactions struct {
	lines []string
	nodes []Node
}

// Node is a validator entry from a NODE (type "0") genesis transaction.
type Node struct {
	Alias      string
	Dest       string
	ClientIP   string
	ClientPort int
	NodeIP     string
	NodePort   int
}

type genesisTxn struct {
	Txn struct {
		Type json.RawMessage `json:"type"`
		Data struct {
			Dest string `json:"dest"`
			Data struct {
				Alias      string          `json:"alias"`
				ClientIP   string          `json:"client_ip"`
				ClientPort json.RawMessage `json:"client_port"`
				NodeIP     string          `json:"node_ip"`
				NodePort   json.RawMessage `json:"node_port"`
			} `json:"data"`
		} `json:"data"`
	} `json:"txn"`
}

// ParseTransactions reads newline delimited JSON transactions. Blank lines are
// skipped; every other line must hold a JSON object.
func ParseTransactions(r io.Reader) (*Transactions, error) {
	if r == nil {
		return nil, core.NewPoolError(core.KindInput, "genesis reader is required")
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxTransactionBytes)

	out := &Transactions{}
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		node, err := parseLine([]byte(line))
		if err != nil {
			return nil, core.WrapPoolError(err, core.KindInput, "invalid genesis transaction on line "+itoa(lineNo))
		}
		out.lines = append(out.lines, line)
		if node != nil {
			out.nodes = append(out.nodes, *node)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, core.WrapPoolError(err, core.KindFileSystem, "read genesis transactions")
	}
	if len(out.lines) == 0 {
		return nil, core.NewPoolError(core.KindInput, "genesis contains no transactions")
	}
	return out, nil
}

// LoadFile parses the genesis file at path.
func LoadFile(path string) (*Transactions, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, core.NewPoolError(core.KindInput, "genesis path is required")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, core.WrapPoolError(err, core.KindFileSystem, "open genesis file "+path)
	}
	defer file.Close()
	return ParseTransactions(file)
}

// FromSource loads the genesis set named by source. A path takes precedence
// over inline transactions.
func FromSource(source core.PoolSource) (*Transactions, error) {
	if strings.TrimSpace(source.GenesisPath) != "" {
		return LoadFile(source.GenesisPath)
	}
	if len(source.GenesisTransactions) == 0 {
		return nil, core.NewPoolError(core.KindInput, "genesis path or transactions are required")
	}
	joined := strings.Join(source.GenesisTransactions, "\n")
	return ParseTransactions(bytes.NewReader([]byte(joined)))
}

func (t *Transactions) Lines() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.lines...)
}

func (t *Transactions) Nodes() []Node {
	if t == nil {
		return nil
	}
	return append([]Node(nil), t.nodes...)
}

func (t *Transactions) Len() int {
	if t == nil {
		return 0
	}
	return len(t.lines)
}

func parseLine(line []byte) (*Node, error) {
	if len(line) == 0 || line[0] != '{' {
		return nil, errors.New("transaction must be a JSON object")
	}
	var txn genesisTxn
	if err := json.Unmarshal(line, &txn); err != nil {
		return nil, err
	}
	if rawString(txn.Txn.Type) != "0" {
		return nil, nil
	}
	data := txn.Txn.Data.Data
	node := &Node{
		Alias:    data.Alias,
		Dest:     txn.Txn.Data.Dest,
		ClientIP: data.ClientIP,
		NodeIP:   data.NodeIP,
	}
	node.ClientPort, _ = rawInt(data.ClientPort)
	node.NodePort, _ = rawInt(data.NodePort)
	return node, nil
}
