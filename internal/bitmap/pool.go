package bitmap

import "sync"

// blockPools buckets []uint64 scratch buffers by capacity class so that
// New/Release for batches with the same chunk layout reuse storage
// instead of round-tripping through the allocator on every query. Pool
// selection is size-classed (next power of two block count) the way the
// teacher's connection-pool code (arx-backend/services/database) buckets
// pooled resources by a coarse key rather than the exact size requested.
type blockPool struct {
	pools sync.Map // int (size class, blocks) -> *sync.Pool
}

var globalPool = &blockPool{}

func sizeClass(blocks int) int {
	n := 1
	for n < blocks {
		n <<= 1
	}
	return n
}

func (p *blockPool) get(blocks int) []uint64 {
	class := sizeClass(blocks)
	v, _ := p.pools.LoadOrStore(class, &sync.Pool{
		New: func() any { return make([]uint64, class) },
	})
	pool := v.(*sync.Pool)
	buf := pool.Get().([]uint64)
	return buf[:blocks]
}

func (p *blockPool) put(buf []uint64) {
	if cap(buf) == 0 {
		return
	}
	class := sizeClass(cap(buf))
	v, ok := p.pools.Load(class)
	if !ok {
		return
	}
	pool := v.(*sync.Pool)
	pool.Put(buf[:cap(buf)])
}
