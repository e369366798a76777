package store

// Paginator slices a snapshot's matched quads into fixed-size pages,
// replacing the teacher's ExecuteFederatedPaginatedQuery's cap-then-page
// shape (internal/federated_pagination.go) with the scan contract's
// batch_size instead of limit/offset — every match is eventually
// streamed, just chunked for batch-at-a-time delivery.
type Paginator struct {
	quads     []storedQuad
	batchSize int
	pos       int
}

const defaultBatchSize = 1024

// NewPaginator prepares quads for batch-at-a-time delivery using
// batchSize (defaultBatchSize if non-positive).
func NewPaginator(quads []storedQuad, batchSize int) *Paginator {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Paginator{quads: quads, batchSize: batchSize}
}

// Next returns the next page of quads, or ok=false once exhausted.
func (p *Paginator) Next() (page []storedQuad, ok bool) {
	if p.pos >= len(p.quads) {
		return nil, false
	}
	end := p.pos + p.batchSize
	if end > len(p.quads) {
		end = len(p.quads)
	}
	page = p.quads[p.pos:end]
	p.pos = end
	return page, true
}

// Remaining reports how many quads have not yet been paged out.
func (p *Paginator) Remaining() int {
	return len(p.quads) - p.pos
}
