// Package render holds what the export formats share.
//
// The native renderers live in subpackages:
//
//   - [sink]: SVG, PNG, PDF and YAML outline drawn from the document's own
//     geometry
//   - [nodelink]: Graphviz node-link diagrams laid out by Graphviz
//
// # Format Conversion
//
// [ToPDF] converts any SVG to PDF using the external rsvg-convert tool
// (from librsvg). [Available] reports whether the tool is installed, so
// callers can skip PDF without failing a whole export.
//
//	svg := sink.RenderSVG(scene)
//	pdf, err := render.ToPDF(ctx, svg)
package render
