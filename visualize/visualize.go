package visualize

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/Luismorlan/vehicle_ledger/model"
	"github.com/bradleyjkemp/memviz"
	log "github.com/sirupsen/logrus"
)

// We re-define the visualize model here because the block carries far more
// information than a graph can show.
type vehicle struct {
	owner  string
	route  string
	stop   int
	stake  int
	moving bool
}

type block struct {
	index    int64
	hash     string
	prevHash string
	nonce    int64
	vehicles []vehicle
	next     *block
}

// The hashes are just too long to render, instead we take only first 3 and last 3
// characters and replace the middle part with '...'. E.g. "abcdefghi" will be rendered as "abc...ghi"
func shortenString(s string) string {
	if len(s) < 9 {
		return s
	}
	return fmt.Sprintf("%s...%s", s[0:3], s[len(s)-3:])
}

func blockToBlock(b *model.Block) *block {
	n := &block{
		index:    b.Index,
		hash:     shortenString(b.Hash),
		prevHash: shortenString(b.PrevHash),
		nonce:    b.Nonce,
	}
	owners := make([]string, 0, len(b.Vehicles))
	for o := range b.Vehicles {
		owners = append(owners, o)
	}
	sort.Strings(owners)
	for _, o := range owners {
		v := b.Vehicles[o]
		n.vehicles = append(n.vehicles, vehicle{
			owner:  v.Owner,
			route:  v.Route,
			stop:   v.StopIndex,
			stake:  v.Stake,
			moving: !v.InTraffic,
		})
	}
	return n
}

// Given a chain, return a linked list from the d-th block before the tail to the tail.
func constructData(chain []*model.Block, d int) *block {
	start := len(chain) - 1 - d
	if start < 0 {
		start = 0
	}
	var head, prev *block
	for _, b := range chain[start:] {
		n := blockToBlock(b)
		if prev == nil {
			head = n
		} else {
			prev.next = n
		}
		prev = n
	}
	return head
}

// Entry to this package, where:
// chain: the full chain as tracked by the full node.
// d: how many blocks before the tail to include.
// id: unique id of the full node.
// dir: where the graph is written.
// Returns the path of the rendered png, or of the dot source if graphviz is unavailable.
func Render(chain []*model.Block, d int, id, dir string) (string, error) {
	buf := &bytes.Buffer{}

	data := constructData(chain, d)

	memviz.Map(buf, data)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	// Write the parsed data to disk
	fileName := filepath.Join(dir, "chaindata-"+id+".dot")
	outputName := filepath.Join(dir, "rendered-chain-"+id+".png")
	if err := os.WriteFile(fileName, buf.Bytes(), 0o644); err != nil {
		return "", err
	}

	cmd := exec.Command("dot", "-Tpng", fileName, "-o", outputName)
	if err := cmd.Run(); err != nil {
		log.WithError(err).Debug("graphviz not available, keeping dot source")
		return fileName, nil
	}
	return outputName, nil
}
