// Package idgen generates the identifiers of boot runs and recorded events.
package idgen

import (
	"log"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

// Generator can generate IDs.
type Generator interface {
	Generate() string
}

var (
	generatorMutex sync.Mutex
	generator      Generator
)

// UseSequential makes IDs deterministic: 1, 2, 3, ... It must be called
// before the first ID is generated.
func UseSequential() {
	use(&sequential{})
}

// UseUnique makes IDs globally unique, so that runs recorded into the same
// database can be told apart.
func UseUnique() {
	use(unique{})
}

func use(g Generator) {
	generatorMutex.Lock()
	defer generatorMutex.Unlock()

	if generator != nil {
		log.Panic("cannot change id generator type after using it")
	}

	generator = g
}

// Get returns the generator in use, defaulting to the sequential one.
func Get() Generator {
	generatorMutex.Lock()
	defer generatorMutex.Unlock()

	if generator == nil {
		generator = &sequential{}
	}

	return generator
}

// Generate returns a new ID from the generator in use.
func Generate() string {
	return Get().Generate()
}

type sequential struct {
	nextID uint64
}

func (g *sequential) Generate() string {
	return strconv.FormatUint(atomic.AddUint64(&g.nextID, 1), 10)
}

type unique struct{}

func (unique) Generate() string {
	return xid.New().String()
}

// NewSequential returns a private sequential generator.
func NewSequential() Generator {
	return &sequential{}
}

// NewUnique returns a private xid based generator.
func NewUnique() Generator {
	return unique{}
}
