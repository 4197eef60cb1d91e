package sim

import (
	"log"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

// IDGenerator generates unique IDs for events and tasks.
type IDGenerator interface {
	Generate() string
}

var (
	idGeneratorLock sync.Mutex
	idGenerator     IDGenerator
)

// UseSequentialIDGenerator makes IDs deterministic: "1", "2", ... It must be
// called before the first ID is generated.
func UseSequentialIDGenerator() {
	setIDGenerator(&sequentialIDGenerator{})
}

// UseXIDGenerator makes IDs globally unique, so that traces of different runs
// can be stored in the same database. It must be called before the first ID
// is generated.
func UseXIDGenerator() {
	setIDGenerator(xidGenerator{})
}

func setIDGenerator(g IDGenerator) {
	idGeneratorLock.Lock()
	defer idGeneratorLock.Unlock()

	if idGenerator != nil {
		log.Panic("cannot change the id generator after using it")
	}

	idGenerator = g
}

// GetIDGenerator returns the ID generator in use. Unless configured
// otherwise, IDs are sequential.
func GetIDGenerator() IDGenerator {
	idGeneratorLock.Lock()
	defer idGeneratorLock.Unlock()

	if idGenerator == nil {
		idGenerator = &sequentialIDGenerator{}
	}

	return idGenerator
}

type sequentialIDGenerator struct {
	nextID uint64
}

func (g *sequentialIDGenerator) Generate() string {
	return strconv.FormatUint(atomic.AddUint64(&g.nextID, 1), 10)
}

type xidGenerator struct{}

func (xidGenerator) Generate() string {
	return xid.New().String()
}
