package app

import (
	"context"
	"sort"

	"commentary/api/internal/store"
)

// ListNested returns the visible comments of a post assembled into a forest,
// along with the total number of comments in it. Roots are comments without a
// parent, plus comments whose parent is not in the fetched set (a removed
// ancestor must not swallow its descendants). Siblings are ordered oldest
// first at every level. An unknown path yields an empty forest, not an error.
func (s *Service) ListNested(ctx context.Context, path string) ([]NestedComment, int, error) {
	rows, err := s.store.ListComments(ctx, path)
	if err != nil {
		return nil, 0, errStorageRead(err)
	}
	forest, err := buildForest(rows)
	if err != nil {
		return nil, 0, err
	}
	return forest, len(rows), nil
}

func buildForest(rows []store.Comment) ([]NestedComment, error) {
	byID := make(map[int64]store.Comment, len(rows))
	children := make(map[int64][]int64, len(rows))
	roots := make([]int64, 0, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	for _, row := range rows {
		if row.Parent == nil {
			roots = append(roots, row.ID)
			continue
		}
		if _, ok := byID[*row.Parent]; !ok {
			roots = append(roots, row.ID)
			continue
		}
		children[*row.Parent] = append(children[*row.Parent], row.ID)
	}

	visited := make(map[int64]bool, len(rows))
	var build func(id int64) NestedComment
	build = func(id int64) NestedComment {
		visited[id] = true
		node := NestedComment{
			CommentView: projectComment(byID[id]),
			Children:    []NestedComment{},
		}
		ids := children[id]
		sortByCreated(ids, byID)
		for _, child := range ids {
			node.Children = append(node.Children, build(child))
		}
		return node
	}

	sortByCreated(roots, byID)
	forest := make([]NestedComment, 0, len(roots))
	for _, id := range roots {
		forest = append(forest, build(id))
	}

	// Every fetched row must land somewhere in the forest. A leftover means a
	// parent cycle in storage, which renders part of the thread unreachable.
	if len(visited) != len(rows) {
		return nil, errDataIntegrity("comment tree contains unreachable rows, parent links may be cyclic")
	}
	return forest, nil
}

func sortByCreated(ids []int64, byID map[int64]store.Comment) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := byID[ids[i]], byID[ids[j]]
		if a.Created.Equal(b.Created) {
			return a.ID < b.ID
		}
		return a.Created.Before(b.Created)
	})
}
