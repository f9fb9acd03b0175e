// Package sink turns a laid-out mind map into export formats.
//
// # Scenes
//
// [Build] resolves a document into a [Scene]: node boxes with their text
// lines and image placement, plus one bezier [Connector] per parent/child
// pair. Boxes and connectors take the colour of the top-level branch they
// belong to, as chosen by the [Style]. All renderers draw from the same
// scene, so every format shows the same picture:
//
//	sc := sink.Build(doc, engine, sink.Classic)
//	svg := sink.RenderSVG(sc)
//	png, err := sink.RenderPNG(sc, 2.0)
//
// # Formats
//
//   - SVG: written directly, images embedded as data URIs
//   - PNG: rasterised natively with gg; no external tools
//   - PDF: SVG converted by rsvg-convert (see [render.ToPDF])
//   - YAML: the hierarchy only, see [RenderOutline]
//
// # Zoom
//
// Raster exports share the zoom range of interactive viewers. [ClampZoom]
// keeps a scale between [ZoomMin] and [ZoomMax].
package sink
