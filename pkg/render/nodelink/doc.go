// Package nodelink renders mind maps as Graphviz node-link diagrams.
//
// Graphviz places the nodes itself, so the result ignores hand-made
// adjustments to the document's geometry. It is useful as an overview or for
// feeding the hierarchy to other Graphviz tooling.
//
//	dot := nodelink.ToDOT(doc, nodelink.Options{Direction: layout.DirectionDown})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// Nodes and edges carry the branch colours of the chosen [sink.Style]. With
// Options.Detailed the labels also show node ids and links.
package nodelink
