package plan

// skip reports whether an item carrying itemTags should be excluded given
// the run's include/skip tag lists. Precedence:
//
//   - if itemTags intersects skipTags, skip.
//   - if itemTags contains "never" and includeTags doesn't explicitly ask
//     for "never", skip.
//   - if includeTags is non-empty and disjoint from itemTags, skip --
//     unless itemTags contains "always", which is never filtered out by a
//     non-matching include list.
func skip(itemTags []string, includeTags []string, skipTags []string) bool {
	if intersects(itemTags, skipTags) {
		return true
	}

	if contains(itemTags, "never") && !contains(includeTags, "never") {
		return true
	}

	if len(includeTags) > 0 && !contains(itemTags, "always") && !intersects(itemTags, includeTags) {
		return true
	}

	return false
}

func contains(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(b))
	for _, t := range b {
		set[t] = struct{}{}
	}
	for _, t := range a {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}
