package slot

// ListFilters narrows a slot listing. The zero value (or ZoneAll) lists
// every slot in the venue.
type ListFilters struct {
	Zone   string
	Status Status
	Type   Type
}

// Match reports whether a slot passes the filters. The client sends the
// filters to the service as query parameters; Match exists for callers that
// filter an already-loaded collection.
func (f ListFilters) Match(s Slot) bool {
	if f.Zone != "" && f.Zone != ZoneAll && s.Zone != f.Zone {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.Type != "" && s.Type != f.Type {
		return false
	}
	return true
}
