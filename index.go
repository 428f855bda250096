package fleetcache

// tagIndex maps a tag to the keys registered under it. Guarded by the cache mutex.
type tagIndex struct {
	byTag map[string]map[string]struct{}
}

func newTagIndex() *tagIndex {
	return &tagIndex{byTag: make(map[string]map[string]struct{})}
}

func (ix *tagIndex) add(key string, tags []string) {
	for _, tag := range tags {
		keys, ok := ix.byTag[tag]
		if !ok {
			keys = make(map[string]struct{})
			ix.byTag[tag] = keys
		}
		keys[key] = struct{}{}
	}
}

func (ix *tagIndex) remove(key string, tags []string) {
	for _, tag := range tags {
		keys, ok := ix.byTag[tag]
		if !ok {
			continue
		}
		delete(keys, key)
		if len(keys) == 0 {
			delete(ix.byTag, tag)
		}
	}
}

// take removes tag from the index and returns its keys
func (ix *tagIndex) take(tag string) []string {
	keys, ok := ix.byTag[tag]
	if !ok {
		return nil
	}
	delete(ix.byTag, tag)
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	return out
}

func (ix *tagIndex) tags() int {
	return len(ix.byTag)
}

func (ix *tagIndex) clear() {
	ix.byTag = make(map[string]map[string]struct{})
}
