package feeds

import "sort"

// DiffComparer is the default Comparer.
type DiffComparer struct{}

func (DiffComparer) Compare(stored Snapshot, feed *Feed) *SourceDiff {
	diff := &SourceDiff{Digest: feed.Digest}

	fetched := make(map[string]FeedCategory, len(feed.Categories))
	for _, c := range feed.Categories {
		fetched[c.Name] = c
	}

	for name := range stored {
		if _, ok := fetched[name]; !ok {
			diff.RemovedCategories = append(diff.RemovedCategories, name)
		}
	}

	for _, cat := range feed.Categories {
		old, known := stored[cat.Name]
		if !known {
			diff.NewCategories = append(diff.NewCategories, cat.Name)
			old = map[uint]string{}
		}

		cd := CategoryDiff{Name: cat.Name}
		inFeed := make(map[uint]struct{}, len(cat.Rules))
		for _, r := range cat.Rules {
			inFeed[r.SID] = struct{}{}
			content, ok := old[r.SID]
			switch {
			case !ok:
				cd.Added = append(cd.Added, r.SID)
			case content != r.Content:
				cd.Modified = append(cd.Modified, r.SID)
			}
		}
		for sid := range old {
			if _, ok := inFeed[sid]; !ok {
				cd.Removed = append(cd.Removed, sid)
			}
		}
		if len(cd.Added)+len(cd.Removed)+len(cd.Modified) == 0 {
			continue
		}
		sortSIDs(cd.Added)
		sortSIDs(cd.Removed)
		sortSIDs(cd.Modified)
		diff.Categories = append(diff.Categories, cd)
	}

	sort.Strings(diff.NewCategories)
	sort.Strings(diff.RemovedCategories)
	sort.Slice(diff.Categories, func(i, j int) bool { return diff.Categories[i].Name < diff.Categories[j].Name })
	return diff
}

func sortSIDs(s []uint) {
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
}
