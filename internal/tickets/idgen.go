package tickets

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

const IDPrefix = "GOV-"

// recentIDs bounds the ids a generator remembers for redraws.
const recentIDs = 1 << 16

// IDGenerator issues ticket ids of the form GOV-<digits>. An id never repeats
// any of the last recentIDs ids of the same generator; stores enforce
// uniqueness beyond that window.
type IDGenerator struct {
	mu     sync.Mutex
	rnd    *rand.Rand
	limit  int
	count  int
	recent map[string]struct{}
	ring   []string
	next   int
}

func NewIDGenerator() *IDGenerator {
	return NewIDGeneratorWithSeed(time.Now().UnixNano())
}

func NewIDGeneratorWithSeed(seed int64) *IDGenerator {
	return &IDGenerator{
		rnd:    rand.New(rand.NewSource(seed)),
		limit:  100000,
		recent: map[string]struct{}{},
	}
}

func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	for {
		// widen once half of the current range is used so redraws stay cheap
		if g.count >= g.limit/2 {
			g.limit *= 10
		}
		id := fmt.Sprintf("%s%d", IDPrefix, g.rnd.Intn(g.limit))
		if _, dup := g.recent[id]; dup {
			continue
		}
		g.remember(id)
		g.count++
		return id
	}
}

func (g *IDGenerator) remember(id string) {
	if len(g.ring) < recentIDs {
		g.ring = append(g.ring, id)
	} else {
		delete(g.recent, g.ring[g.next])
		g.ring[g.next] = id
		g.next = (g.next + 1) % recentIDs
	}
	g.recent[id] = struct{}{}
}
