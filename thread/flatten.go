package thread

type BlockKind string

const (
	BlockThreadStart BlockKind = "thread-start"
	BlockThreadEnd   BlockKind = "thread-end"
	BlockParentError BlockKind = "parent-error"
	BlockLoading     BlockKind = "loading"
	BlockArticle     BlockKind = "article"
	BlockEllipsis    BlockKind = "ellipsis"
)

// One element of the rendered page, top to bottom.
type Block struct {
	Kind    BlockKind `json:"kind"`
	Node    *Node     `json:"-"`
	Article *Article  `json:"article,omitempty"`
	Message string    `json:"message,omitempty"`
	Depth   int       `json:"depth"`
}

// Flatten walks a node tree in display order: oldest ancestor first, focal post last.
func Flatten(n *Node) []Block {
	if n == nil {
		return nil
	}
	var out []Block
	article := func() {
		if n.Article != nil {
			out = append(out, Block{Kind: BlockArticle, Node: n, Article: n.Article, Depth: n.Depth})
		}
	}

	switch {
	case n.ParentError != "":
		out = append(out, Block{Kind: BlockParentError, Node: n, Message: n.ParentError, Depth: n.Depth})
		article()
	case n.Reply:
		if n.ThreadContainer {
			out = append(out, Block{Kind: BlockThreadStart, Node: n, Depth: n.Depth})
		}
		if n.Parent != nil {
			out = append(out, Flatten(n.Parent)...)
		} else {
			out = append(out, Block{Kind: BlockLoading, Node: n, Depth: n.Depth + 1})
		}
		article()
		if n.ThreadContainer {
			out = append(out, Block{Kind: BlockThreadEnd, Node: n, Depth: n.Depth})
		}
	default:
		article()
		if n.HiddenReplies > 0 {
			out = append(out, Block{Kind: BlockEllipsis, Node: n, Message: n.HiddenLabel(), Depth: n.Depth})
		}
	}
	return out
}

// Articles returns every non-collapsed article in display order (not including quoted posts).
func Articles(n *Node) []*Article {
	var out []*Article
	for _, b := range Flatten(n) {
		if b.Kind == BlockArticle {
			out = append(out, b.Article)
		}
	}
	return out
}
