package kernel

// MemRegion is one readable (and optionally writable) address range of a
// process. Region sets come from the memory-protection configuration; the
// kernel consumes them for system-call pointer validation only.
type MemRegion struct {
	Base     uint32
	Data     []byte
	Writable bool
}

func (r *MemRegion) contains(addr, n uint32) bool {
	size := uint32(len(r.Data))
	return addr >= r.Base && n <= size && addr-r.Base <= size-n
}

// resolve maps a process-space pointer/length pair onto the backing memory.
// The range must lie entirely within one region of the process.
func (p *Process) resolve(addr, n uint32, write bool) ([]byte, bool) {
	if n == 0 {
		return nil, false
	}
	for i := range p.regions {
		r := &p.regions[i]
		if !r.contains(addr, n) {
			continue
		}
		if write && !r.Writable {
			return nil, false
		}
		off := addr - r.Base
		return r.Data[off : off+n], true
	}
	return nil, false
}
