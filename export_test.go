package sqltpl

// CacheStats returns the number of cache hits and misses of the compiler and
// the number of templates cached.
func (c *Compiler) CacheStats() (hits, misses int64, size int) {
	hits, misses = c.cache.stats()
	return hits, misses, c.cache.len()
}

// PurgeCache empties the template cache of the compiler.
func (c *Compiler) PurgeCache() {
	c.cache.purge()
}

// SameParse reports whether two templates share the same parsed template.
func SameParse(a, b *Template) bool {
	return a.pe == b.pe
}
