package cachesvc

import (
	"context"
	"time"

	"github.com/trezcool/masomo-lms/core"
)

// noopCache never stores anything.
type noopCache struct{}

var _ core.Cache = (*noopCache)(nil) // interface compliance check

func NewNoopCache() core.Cache {
	return noopCache{}
}

func (noopCache) Get(context.Context, string, interface{}) (bool, error)        { return false, nil }
func (noopCache) Set(context.Context, string, interface{}, time.Duration) error { return nil }
func (noopCache) Delete(context.Context, ...string) error                       { return nil }
