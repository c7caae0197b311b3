package dynamo

import "sync"

// FieldPool recycles scratch fields of one mesh shape.
type FieldPool struct {
	pool   sync.Pool
	nr, nz int
}

func NewFieldPool(nr, nz int) *FieldPool {
	return &FieldPool{
		nr: nr,
		nz: nz,
		pool: sync.Pool{
			New: func() interface{} {
				return NewField(nr, nz)
			},
		},
	}
}

func (p *FieldPool) Get() *Field {
	return p.pool.Get().(*Field)
}

func (p *FieldPool) Put(f *Field) {
	if f != nil && f.NR == p.nr && f.NZ == p.nz {
		f.Fill(0)
		p.pool.Put(f)
	}
}

func (p *FieldPool) GetAndCopy(src *Field) *Field {
	dst := p.Get()
	dst.CopyFrom(src)
	return dst
}
