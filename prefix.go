package rossete

import "sync"

// PrefixMap holds the (short -> full URI) bindings declared by @prefix and
// the single ("" -> URI) base binding declared by @base. It is
// mutable only during parsing (protected by a single-writer lock) and
// becomes read-only, shared-by-reference state once Freeze is called.
type PrefixMap struct {
	mu      sync.RWMutex
	entries map[string]string
	frozen  bool
}

// NewPrefixMap returns an empty, writable PrefixMap.
func NewPrefixMap() *PrefixMap {
	return &PrefixMap{entries: make(map[string]string)}
}

// Set records short -> uri. Re-declaring a short label overwrites the prior
// binding, matching the "last wins" convention of RML mapping documents.
// Calling Set on a frozen map panics: that indicates a bug in the parser,
// which is the only writer.
func (p *PrefixMap) Set(short, uri string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.frozen {
		panic("rossete: Set on frozen PrefixMap")
	}
	p.entries[short] = uri
}

// Freeze stops further writes. Safe to call more than once.
func (p *PrefixMap) Freeze() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frozen = true
}

// Resolve returns the URI bound to short, and whether it was found.
func (p *PrefixMap) Resolve(short string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	uri, ok := p.entries[short]
	return uri, ok
}

// Expand concatenates the base URI bound to prefix with local, per the W3C
// rule that "a prefixed name is turned into an IRI by concatenating the IRI
// associated with the prefix and the local part".
func (p *PrefixMap) Expand(prefix, local string) (string, bool) {
	base, ok := p.Resolve(prefix)
	if !ok {
		return local, false
	}
	return base + local, true
}

// Len reports the number of registered prefixes (the base binding under ""
// counts too).
func (p *PrefixMap) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// Merge copies every binding of other into p, for the parsing pool's case of
// one PrefixMap per mapping file that must collapse into a single process-
// wide map before ingestion starts. p must still be unfrozen; other may
// already be frozen (as the maps Parse returns are).
func (p *PrefixMap) Merge(other *PrefixMap) {
	other.mu.RLock()
	entries := make(map[string]string, len(other.entries))
	for k, v := range other.entries {
		entries[k] = v
	}
	other.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.frozen {
		panic("rossete: Merge on frozen PrefixMap")
	}
	for k, v := range entries {
		p.entries[k] = v
	}
}
